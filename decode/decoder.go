package decode

import (
	"encoding/binary"
	"math"
)

/*
Primitive decoding for the Avro binary encoding. The Decoder is a
sequential cursor over a byte slice. Each read advances the cursor and
returns a typed value, or an error on truncated or malformed input - a
failed read leaves the cursor in an undefined position and the decoder
must be Set or Reset before reuse.

A Decoder is not safe for concurrent use; give each concurrent plan
invocation its own.
*/

////////////////////////////////////////////////////////////////////////////////

// maxVarintLen is the longest legal zig-zag varint encoding of a long.
const maxVarintLen = 10

// Decoder is a sequential read cursor over a byte slice.
type Decoder struct {
	data []byte
	pos  int
}

// NewDecoder returns a decoder positioned at the start of data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Set repoints the decoder at a new byte slice and rewinds it.
func (d *Decoder) Set(data []byte) {
	d.data = data
	d.pos = 0
}

// Reset rewinds the decoder to the start of its data.
func (d *Decoder) Reset() {
	d.pos = 0
}

// Len returns the number of unread bytes.
func (d *Decoder) Len() int {
	return len(d.data) - d.pos
}

// ReadLong reads a zig-zag encoded variable-length long.
func (d *Decoder) ReadLong() (int64, error) {
	var x uint64
	var shift uint
	for i := 0; ; i++ {
		if i == maxVarintLen {
			return 0, VarintOverflowError{"long"}
		}
		if d.pos >= len(d.data) {
			return 0, ShortReadError{"long"}
		}
		b := d.data[d.pos]
		d.pos++
		x |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	return int64(x>>1) ^ -int64(x&1), nil
}

// ReadInt reads a zig-zag encoded variable-length int.
func (d *Decoder) ReadInt() (int32, error) {
	v, err := d.ReadLong()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, VarintOverflowError{"int"}
	}
	return int32(v), nil
}

// ReadFloat reads a little-endian IEEE 754 single.
func (d *Decoder) ReadFloat() (float32, error) {
	if d.Len() < 4 {
		return 0, ShortReadError{"float"}
	}
	bits := binary.LittleEndian.Uint32(d.data[d.pos:])
	d.pos += 4
	return math.Float32frombits(bits), nil
}

// ReadDouble reads a little-endian IEEE 754 double.
func (d *Decoder) ReadDouble() (float64, error) {
	if d.Len() < 8 {
		return 0, ShortReadError{"double"}
	}
	bits := binary.LittleEndian.Uint64(d.data[d.pos:])
	d.pos += 8
	return math.Float64frombits(bits), nil
}

// ReadBoolean reads a single boolean byte. Any nonzero byte is true.
func (d *Decoder) ReadBoolean() (bool, error) {
	if d.Len() < 1 {
		return false, ShortReadError{"boolean"}
	}
	b := d.data[d.pos]
	d.pos++
	return b != 0, nil
}

// ReadBytes reads a length-prefixed byte string. The returned slice is a
// copy owned by the caller.
func (d *Decoder) ReadBytes() ([]byte, error) {
	length, err := d.ReadLong()
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, NegativeLengthError{"bytes", length}
	}
	return d.ReadFixed(int(length))
}

// ReadString reads a length-prefixed UTF-8 string.
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadLong()
	if err != nil {
		return "", err
	}
	if length < 0 {
		return "", NegativeLengthError{"string", length}
	}
	if d.Len() < int(length) {
		return "", ShortReadError{"string"}
	}
	s := string(d.data[d.pos : d.pos+int(length)])
	d.pos += int(length)
	return s, nil
}

// ReadFixed reads exactly n raw bytes, with no length prefix. The
// returned slice is a copy owned by the caller.
func (d *Decoder) ReadFixed(n int) ([]byte, error) {
	if d.Len() < n {
		return nil, ShortReadError{"fixed"}
	}
	buf := make([]byte, n)
	copy(buf, d.data[d.pos:d.pos+n])
	d.pos += n
	return buf, nil
}
