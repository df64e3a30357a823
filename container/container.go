package container

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/wkalt/avroplan/decode"
	"github.com/wkalt/avroplan/plan"
	"github.com/wkalt/avroplan/schema"
	"github.com/wkalt/avroplan/util/log"
)

/*
Object container file reading. A container file is a magic header, a
metadata map (itself Avro - map<bytes> - so we decode it with a compiled
plan), a 16-byte sync marker, then a sequence of blocks: a long record
count, a long compressed byte size, the compressed payload, and the sync
marker again. The embedded writer schema from the metadata is compiled
once and used for every record in every block.

Blocks are independent byte ranges, so callers that want parallelism can
pull raw blocks with NextBlock and decode them concurrently with
DecodeBlock, one decoder per block.
*/

////////////////////////////////////////////////////////////////////////////////

var magic = []byte{'O', 'b', 'j', 1}

const syncLen = 16

// metadataSchema describes the container header metadata map.
var metadataSchema = &schema.Type{ // nolint:gochecknoglobals
	Map:    true,
	Values: &schema.Type{Primitive: schema.BYTES},
}

// Block is one raw container block: a record count and the decompressed
// payload holding that many consecutive record encodings.
type Block struct {
	Count int64
	Data  []byte
}

// Reader reads records from an object container file.
type Reader struct {
	dec        *decode.Decoder
	plan       *plan.Plan
	schema     *schema.Type
	schemaJSON []byte
	codec      codec
	sync       []byte

	block     *decode.Decoder
	remaining int64
}

// NewReader reads the container header from r, parses and compiles the
// embedded writer schema, and returns a reader positioned at the first
// block. A container without a writer schema is rejected before any
// record is read.
func NewReader(ctx context.Context, r io.Reader) (*Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read container: %w", err)
	}
	dec := decode.NewDecoder(data)
	header, err := dec.ReadFixed(len(magic))
	if err != nil {
		return nil, fmt.Errorf("failed to read magic: %w", err)
	}
	if !bytes.Equal(header, magic) {
		return nil, ErrBadMagic
	}
	metaPlan, err := plan.Compile(metadataSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile metadata schema: %w", err)
	}
	rawMeta, err := metaPlan.DecodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	meta := rawMeta.(map[string]any)
	schemaJSON, ok := meta["avro.schema"].([]byte)
	if !ok {
		return nil, ErrNoWriterSchema
	}
	codecName := "null"
	if raw, ok := meta["avro.codec"].([]byte); ok {
		codecName = string(raw)
	}
	c, err := newCodec(codecName)
	if err != nil {
		return nil, err
	}
	sync, err := dec.ReadFixed(syncLen)
	if err != nil {
		return nil, fmt.Errorf("failed to read sync marker: %w", err)
	}
	writerSchema, err := schema.Parse(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to parse writer schema: %w", err)
	}
	compiled, err := plan.Compile(writerSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile writer schema: %w", err)
	}
	log.Debugf(ctx, "opened container: codec %s, schema %s", codecName, string(schemaJSON))
	return &Reader{
		dec:        dec,
		plan:       compiled,
		schema:     writerSchema,
		schemaJSON: schemaJSON,
		codec:      c,
		sync:       sync,
	}, nil
}

// Schema returns the compiled writer schema tree.
func (r *Reader) Schema() *schema.Type {
	return r.schema
}

// SchemaJSON returns the writer schema exactly as embedded in the file.
func (r *Reader) SchemaJSON() []byte {
	return r.schemaJSON
}

// NextBlock reads and decompresses the next raw block, returning io.EOF
// at a clean end of file.
func (r *Reader) NextBlock() (*Block, error) {
	if r.dec.Len() == 0 {
		return nil, io.EOF
	}
	count, err := r.dec.ReadLong()
	if err != nil {
		return nil, fmt.Errorf("failed to read block record count: %w", err)
	}
	if count < 0 {
		return nil, fmt.Errorf("negative block record count %d", count)
	}
	size, err := r.dec.ReadLong()
	if err != nil {
		return nil, fmt.Errorf("failed to read block size: %w", err)
	}
	if size < 0 {
		return nil, fmt.Errorf("negative block size %d", size)
	}
	payload, err := r.dec.ReadFixed(int(size))
	if err != nil {
		return nil, fmt.Errorf("failed to read block payload: %w", err)
	}
	sync, err := r.dec.ReadFixed(syncLen)
	if err != nil {
		return nil, fmt.Errorf("failed to read block sync marker: %w", err)
	}
	if !bytes.Equal(sync, r.sync) {
		return nil, ErrSyncMismatch
	}
	data, err := r.codec.decompress(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress block: %w", err)
	}
	return &Block{Count: count, Data: data}, nil
}

// DecodeBlock decodes every record in a block with a fresh decoder. Safe
// to call concurrently for distinct blocks; the plan is shared, the
// decoders are not.
func (r *Reader) DecodeBlock(b *Block) ([]any, error) {
	dec := decode.NewDecoder(b.Data)
	values := make([]any, 0, b.Count)
	for i := int64(0); i < b.Count; i++ {
		value, err := r.plan.DecodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("failed to decode record %d: %w", i, err)
		}
		values = append(values, value)
	}
	return values, nil
}

// Next returns the next record in the file, or io.EOF when all blocks
// are exhausted.
func (r *Reader) Next() (any, error) {
	for r.remaining == 0 {
		block, err := r.NextBlock()
		if err != nil {
			return nil, err
		}
		r.block = decode.NewDecoder(block.Data)
		r.remaining = block.Count
	}
	r.remaining--
	value, err := r.plan.DecodeValue(r.block)
	if err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return value, nil
}
