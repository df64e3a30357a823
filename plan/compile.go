package plan

import (
	"fmt"

	"github.com/wkalt/avroplan/decode"
	"github.com/wkalt/avroplan/schema"
)

/*
Per-node-kind compilation. compileNode is the central dispatch: one case
per schema node kind, recursing over nested nodes. Each case returns a
closure specialized to the node it was compiled from.
*/

////////////////////////////////////////////////////////////////////////////////

func (c *compiler) compileNode(t *schema.Type) (decodeFunc, error) {
	switch {
	case t.LogicalType != "":
		return c.compileLogical(t)
	case t.Ref != "":
		return c.compileRef(t.Ref)
	case t.Union:
		return c.compileUnion(t.Branches)
	case t.Record:
		return c.compileRecord(t)
	case t.Array:
		return c.compileArray(t.Items)
	case t.Map:
		return c.compileMap(t.Values)
	case t.Fixed:
		return c.compileFixed(t.Size)
	case t.Enum:
		return c.compileEnum(t)
	case t.IsPrimitive():
		return compilePrimitive(t.Primitive)
	default:
		return nil, fmt.Errorf("unsupported schema node: %+v", t)
	}
}

func compilePrimitive(p schema.PrimitiveType) (decodeFunc, error) {
	switch p {
	case schema.NULL:
		// No read; the value is constant.
		return func(*decode.Decoder) (any, error) { return nil, nil }, nil
	case schema.BOOLEAN:
		return func(d *decode.Decoder) (any, error) { return d.ReadBoolean() }, nil
	case schema.INT:
		return func(d *decode.Decoder) (any, error) { return d.ReadInt() }, nil
	case schema.LONG:
		return func(d *decode.Decoder) (any, error) { return d.ReadLong() }, nil
	case schema.FLOAT:
		return func(d *decode.Decoder) (any, error) { return d.ReadFloat() }, nil
	case schema.DOUBLE:
		return func(d *decode.Decoder) (any, error) { return d.ReadDouble() }, nil
	case schema.BYTES:
		return func(d *decode.Decoder) (any, error) { return d.ReadBytes() }, nil
	case schema.STRING:
		return func(d *decode.Decoder) (any, error) { return d.ReadString() }, nil
	default:
		return nil, fmt.Errorf("unsupported primitive type: %s", p)
	}
}

// compileRef compiles a reference to a recursive named type as a call
// through the shared procedure table. The table entry exists before any
// call site is compiled; the procedure itself may not yet.
func (c *compiler) compileRef(name string) (decodeFunc, error) {
	proc, ok := c.shared[name]
	if !ok {
		return nil, fmt.Errorf("dangling reference to type %q", name)
	}
	return func(d *decode.Decoder) (any, error) {
		return proc.fn(d)
	}, nil
}

// compileUnion compiles index-prefixed branch dispatch. Branch order is
// the wire contract: the writer encodes the zero-based index of the
// chosen branch as a long, immediately before the branch encoding.
func (c *compiler) compileUnion(branches []*schema.Type) (decodeFunc, error) {
	// Two-branch unions with a null branch are optional fields.
	if len(branches) == 2 {
		if branches[0].Primitive == schema.NULL {
			return c.compileOptional(1, branches[1])
		}
		if branches[1].Primitive == schema.NULL {
			return c.compileOptional(0, branches[0])
		}
	}
	fns := make([]decodeFunc, len(branches))
	for i, branch := range branches {
		fn, err := c.compileNode(branch)
		if err != nil {
			return nil, fmt.Errorf("failed to compile union branch %d: %w", i, err)
		}
		fns[i] = fn
	}
	return func(d *decode.Decoder) (any, error) {
		idx, err := d.ReadLong()
		if err != nil {
			return nil, fmt.Errorf("failed to read union index: %w", err)
		}
		if idx < 0 || idx >= int64(len(fns)) {
			return nil, UnionRangeError{int(idx), len(fns)}
		}
		return fns[idx](d)
	}, nil
}

// compileOptional is the optional-field fast path: equality against the
// non-null branch's index, the null index yielding nil. Behavior is
// identical to the general dispatch.
func (c *compiler) compileOptional(idx int64, value *schema.Type) (decodeFunc, error) {
	fn, err := c.compileNode(value)
	if err != nil {
		return nil, fmt.Errorf("failed to compile optional branch: %w", err)
	}
	return func(d *decode.Decoder) (any, error) {
		choice, err := d.ReadLong()
		if err != nil {
			return nil, fmt.Errorf("failed to read union index: %w", err)
		}
		switch choice {
		case idx:
			return fn(d)
		case 1 - idx:
			return nil, nil
		default:
			return nil, UnionRangeError{int(choice), 2}
		}
	}, nil
}

// compileRecord compiles ordered field decoding into a fresh field map.
// Declared field order is authoritative on the wire and preserved on read.
func (c *compiler) compileRecord(t *schema.Type) (decodeFunc, error) {
	type fieldProc struct {
		name string
		fn   decodeFunc
	}
	procs := make([]fieldProc, len(t.Fields))
	for i, field := range t.Fields {
		fn, err := c.compileNode(field.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to compile field %s.%s: %w", t.Name, field.Name, err)
		}
		procs[i] = fieldProc{name: field.Name, fn: fn}
	}
	return func(d *decode.Decoder) (any, error) {
		record := make(map[string]any, len(procs))
		for _, proc := range procs {
			value, err := proc.fn(d)
			if err != nil {
				return nil, fmt.Errorf("failed to decode field %s: %w", proc.name, err)
			}
			record[proc.name] = value
		}
		return record, nil
	}, nil
}

func (c *compiler) compileArray(items *schema.Type) (decodeFunc, error) {
	item, err := c.compileNode(items)
	if err != nil {
		return nil, fmt.Errorf("failed to compile array items: %w", err)
	}
	return func(d *decode.Decoder) (any, error) {
		values := []any{}
		err := iterateBlocks(d, func(d *decode.Decoder) error {
			value, err := item(d)
			if err != nil {
				return err
			}
			values = append(values, value)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to decode array: %w", err)
		}
		return values, nil
	}, nil
}

// compileMap compiles string-keyed map decoding. A repeated key
// overwrites the previous value; Avro permits duplicates and the last
// write wins.
func (c *compiler) compileMap(values *schema.Type) (decodeFunc, error) {
	value, err := c.compileNode(values)
	if err != nil {
		return nil, fmt.Errorf("failed to compile map values: %w", err)
	}
	return func(d *decode.Decoder) (any, error) {
		result := map[string]any{}
		err := iterateBlocks(d, func(d *decode.Decoder) error {
			key, err := d.ReadString()
			if err != nil {
				return fmt.Errorf("failed to read map key: %w", err)
			}
			v, err := value(d)
			if err != nil {
				return err
			}
			result[key] = v
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to decode map: %w", err)
		}
		return result, nil
	}, nil
}

// iterateBlocks drives the block protocol shared by arrays and maps: a
// sequence of count-prefixed item runs terminated by a zero count. A
// negative count is negated, and the long that follows it - the encoded
// byte size of the block - is consumed and discarded; every item is
// decoded regardless.
func iterateBlocks(d *decode.Decoder, item func(d *decode.Decoder) error) error {
	count, err := d.ReadLong()
	if err != nil {
		return fmt.Errorf("failed to read block count: %w", err)
	}
	for count != 0 {
		if count < 0 {
			count = -count
			if _, err := d.ReadLong(); err != nil {
				return fmt.Errorf("failed to read block size: %w", err)
			}
		}
		for i := int64(0); i < count; i++ {
			if err := item(d); err != nil {
				return err
			}
		}
		if count, err = d.ReadLong(); err != nil {
			return fmt.Errorf("failed to read block count: %w", err)
		}
	}
	return nil
}

func (c *compiler) compileFixed(size int) (decodeFunc, error) {
	return func(d *decode.Decoder) (any, error) {
		return d.ReadFixed(size)
	}, nil
}

// compileEnum compiles a symbol table lookup. An index outside the table
// yields the declared default symbol when one exists, and is otherwise a
// decode error.
func (c *compiler) compileEnum(t *schema.Type) (decodeFunc, error) {
	symbols := t.Symbols
	dflt := t.Default
	name := t.Name
	return func(d *decode.Decoder) (any, error) {
		idx, err := d.ReadLong()
		if err != nil {
			return nil, fmt.Errorf("failed to read enum index: %w", err)
		}
		if idx >= 0 && idx < int64(len(symbols)) {
			return symbols[idx], nil
		}
		if dflt != "" {
			return dflt, nil
		}
		return nil, fmt.Errorf("enum %s index %d out of range with no default", name, idx)
	}, nil
}
