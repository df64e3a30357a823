package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
)

/*
Block compression codecs. The codec name comes from the avro.codec
metadata key; absence means null. Snappy payloads carry a trailing
big-endian CRC32 of the uncompressed data, which we verify.
*/

////////////////////////////////////////////////////////////////////////////////

type codec interface {
	decompress(data []byte) ([]byte, error)
}

func newCodec(name string) (codec, error) {
	switch name {
	case "null":
		return nullCodec{}, nil
	case "deflate":
		return deflateCodec{}, nil
	case "snappy":
		return snappyCodec{}, nil
	case "zstandard":
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build zstd decoder: %w", err)
		}
		return zstdCodec{dec: dec}, nil
	default:
		return nil, UnknownCodecError{name}
	}
}

type nullCodec struct{}

func (nullCodec) decompress(data []byte) ([]byte, error) {
	return data, nil
}

type deflateCodec struct{}

func (deflateCodec) decompress(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to inflate block: %w", err)
	}
	return out, nil
}

type snappyCodec struct{}

func (snappyCodec) decompress(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("snappy block too short: %d bytes", len(data))
	}
	out, err := snappy.Decode(nil, data[:len(data)-4])
	if err != nil {
		return nil, fmt.Errorf("failed to decode snappy block: %w", err)
	}
	want := binary.BigEndian.Uint32(data[len(data)-4:])
	if got := crc32.ChecksumIEEE(out); got != want {
		return nil, fmt.Errorf("snappy crc mismatch: got %08x, want %08x", got, want)
	}
	return out, nil
}

type zstdCodec struct {
	dec *zstd.Decoder
}

func (c zstdCodec) decompress(data []byte) ([]byte, error) {
	out, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decode zstd block: %w", err)
	}
	return out, nil
}
