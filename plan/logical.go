package plan

import (
	"errors"
	"fmt"

	"github.com/wkalt/avroplan/decode"
	"github.com/wkalt/avroplan/schema"
)

/*
Logical-type compilation. A logical annotation is validated at compile
time; when it holds, the physical read is wrapped with the matching
parsing operation. When it does not - bad parameters, a physical type the
logical type does not mandate, or a name we have never heard of - the
annotation is stripped and the node compiles as its physical type.
Logical-type problems never surface as compile or decode errors; they
only degrade the result to the physical value.
*/

////////////////////////////////////////////////////////////////////////////////

var errInvalidLogical = errors.New("invalid logical type")

func (c *compiler) compileLogical(t *schema.Type) (decodeFunc, error) {
	fn, err := c.logicalReader(t)
	if errors.Is(err, errInvalidLogical) {
		stripped := *t
		stripped.LogicalType = ""
		return c.compileNode(&stripped)
	}
	if err != nil {
		return nil, err
	}
	return fn, nil
}

func (c *compiler) logicalReader(t *schema.Type) (decodeFunc, error) {
	switch t.LogicalType {
	case "decimal":
		return c.decimalReader(t)
	case "uuid":
		if t.Primitive != schema.STRING {
			return nil, errInvalidLogical
		}
		return func(d *decode.Decoder) (any, error) {
			raw, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			return decode.ParseUUID(raw)
		}, nil
	case "date":
		if t.Primitive != schema.INT {
			return nil, errInvalidLogical
		}
		return func(d *decode.Decoder) (any, error) {
			raw, err := d.ReadInt()
			if err != nil {
				return nil, err
			}
			return decode.ParseDate(raw), nil
		}, nil
	case "time-millis":
		if t.Primitive != schema.INT {
			return nil, errInvalidLogical
		}
		return func(d *decode.Decoder) (any, error) {
			raw, err := d.ReadInt()
			if err != nil {
				return nil, err
			}
			return decode.ParseTimeMillis(raw), nil
		}, nil
	case "time-micros":
		return c.longLogicalReader(t, func(v int64) any { return decode.ParseTimeMicros(v) })
	case "timestamp-millis":
		return c.longLogicalReader(t, func(v int64) any { return decode.ParseTimestampMillis(v) })
	case "timestamp-micros":
		return c.longLogicalReader(t, func(v int64) any { return decode.ParseTimestampMicros(v) })
	default:
		return nil, errInvalidLogical
	}
}

func (c *compiler) longLogicalReader(t *schema.Type, parse func(int64) any) (decodeFunc, error) {
	if t.Primitive != schema.LONG {
		return nil, errInvalidLogical
	}
	return func(d *decode.Decoder) (any, error) {
		raw, err := d.ReadLong()
		if err != nil {
			return nil, err
		}
		return parse(raw), nil
	}, nil
}

// decimalReader validates decimal parameters and compiles a read of the
// physical bytes or fixed followed by two's complement parsing.
func (c *compiler) decimalReader(t *schema.Type) (decodeFunc, error) {
	precision, scale := t.Precision, t.Scale
	if precision <= 0 || scale < 0 || scale > precision {
		return nil, errInvalidLogical
	}
	var raw decodeFunc
	switch {
	case t.Primitive == schema.BYTES:
		raw = func(d *decode.Decoder) (any, error) { return d.ReadBytes() }
	case t.Fixed:
		size := t.Size
		raw = func(d *decode.Decoder) (any, error) { return d.ReadFixed(size) }
	default:
		return nil, errInvalidLogical
	}
	return func(d *decode.Decoder) (any, error) {
		buf, err := raw(d)
		if err != nil {
			return nil, fmt.Errorf("failed to read decimal: %w", err)
		}
		return decode.ParseDecimal(buf.([]byte), precision, scale), nil
	}, nil
}
