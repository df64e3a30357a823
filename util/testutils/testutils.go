package testutils

import (
	"encoding/binary"
	"math"
)

/*
Builders for hand-assembling Avro binary encodings in tests. The
repository ships no encoder, so tests construct wire bytes from these
primitives instead.
*/

////////////////////////////////////////////////////////////////////////////////

// Flatten concatenates slices of the same type.
func Flatten[T any](slices ...[]T) []T {
	var result []T
	for _, s := range slices {
		result = append(result, s...)
	}
	return result
}

// Long returns the zig-zag varint encoding of v.
func Long(v int64) []byte {
	x := uint64(v<<1) ^ uint64(v>>63)
	buf := make([]byte, 0, 10)
	for x >= 0x80 {
		buf = append(buf, byte(x)|0x80)
		x >>= 7
	}
	return append(buf, byte(x))
}

// Int returns the zig-zag varint encoding of v.
func Int(v int32) []byte {
	return Long(int64(v))
}

// Boolean returns the single-byte encoding of v.
func Boolean(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// Float returns the little-endian IEEE 754 encoding of v.
func Float(v float32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
	return buf
}

// Double returns the little-endian IEEE 754 encoding of v.
func Double(v float64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	return buf
}

// Bytes returns the length-prefixed encoding of v.
func Bytes(v []byte) []byte {
	return append(Long(int64(len(v))), v...)
}

// String returns the length-prefixed encoding of v.
func String(v string) []byte {
	return Bytes([]byte(v))
}

// Block returns one count-prefixed item block.
func Block(count int64, items ...[]byte) []byte {
	return Flatten(append([][]byte{Long(count)}, items...)...)
}

// Terminated appends the zero-count terminator block to a block sequence.
func Terminated(blocks ...[]byte) []byte {
	return Flatten(append(blocks, Long(0))...)
}

// Union returns a branch index followed by the branch encoding.
func Union(index int64, value []byte) []byte {
	return append(Long(index), value...)
}
