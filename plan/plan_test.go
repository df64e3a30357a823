package plan_test

import (
	"fmt"
	"math/big"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/avroplan/decode"
	"github.com/wkalt/avroplan/plan"
	"github.com/wkalt/avroplan/schema"
	"github.com/wkalt/avroplan/util/testutils"
	"golang.org/x/sync/errgroup"
)

func mustCompile(t *testing.T, schemaJSON string) *plan.Plan {
	t.Helper()
	parsed, err := schema.Parse([]byte(schemaJSON))
	require.NoError(t, err)
	compiled, err := plan.Compile(parsed)
	require.NoError(t, err)
	return compiled
}

func decodeOne(t *testing.T, p *plan.Plan, data []byte) any {
	t.Helper()
	d := decode.NewDecoder(data)
	v, err := p.DecodeValue(d)
	require.NoError(t, err)
	require.Zero(t, d.Len())
	return v
}

func TestPrimitiveRoundTrips(t *testing.T) {
	cases := []struct {
		assertion string
		schema    string
		input     []byte
		output    any
	}{
		{"null reads nothing", `"null"`, []byte{}, nil},
		{"boolean", `"boolean"`, testutils.Boolean(true), true},
		{"int", `"int"`, testutils.Int(-42), int32(-42)},
		{"long zero is a single zero byte", `"long"`, []byte{0}, int64(0)},
		{"long", `"long"`, testutils.Long(123456), int64(123456)},
		{"float", `"float"`, testutils.Float(0.5), float32(0.5)},
		{"double", `"double"`, testutils.Double(-2.25), -2.25},
		{"bytes", `"bytes"`, testutils.Bytes([]byte{9, 8}), []byte{9, 8}},
		{"string", `"string"`, testutils.String("hello"), "hello"},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			p := mustCompile(t, c.schema)
			require.Equal(t, c.output, decodeOne(t, p, c.input))
		})
	}
}

func TestOptionalUnion(t *testing.T) {
	p := mustCompile(t, `["null", "long"]`)

	t.Run("index 0 yields null", func(t *testing.T) {
		require.Nil(t, decodeOne(t, p, testutils.Long(0)))
	})

	t.Run("index 1 yields the long", func(t *testing.T) {
		input := testutils.Union(1, testutils.Long(7))
		require.Equal(t, int64(7), decodeOne(t, p, input))
	})

	t.Run("index out of range errors", func(t *testing.T) {
		d := decode.NewDecoder(testutils.Long(2))
		_, err := p.DecodeValue(d)
		require.ErrorIs(t, err, plan.UnionRangeError{})
	})

	t.Run("null second works too", func(t *testing.T) {
		p := mustCompile(t, `["long", "null"]`)
		require.Equal(t, int64(7), decodeOne(t, p, testutils.Union(0, testutils.Long(7))))
		require.Nil(t, decodeOne(t, p, testutils.Long(1)))
	})
}

func TestGeneralUnionOrderSensitivity(t *testing.T) {
	p := mustCompile(t, `["string", "int", "boolean"]`)

	t.Run("index selects the declared branch", func(t *testing.T) {
		input := testutils.Union(1, testutils.Int(42))
		require.Equal(t, int32(42), decodeOne(t, p, input))
	})

	t.Run("other branches dispatch by position", func(t *testing.T) {
		require.Equal(t, "hi", decodeOne(t, p, testutils.Union(0, testutils.String("hi"))))
		require.Equal(t, true, decodeOne(t, p, testutils.Union(2, testutils.Boolean(true))))
	})

	t.Run("index out of range errors", func(t *testing.T) {
		d := decode.NewDecoder(testutils.Long(7))
		_, err := p.DecodeValue(d)
		require.ErrorIs(t, err, plan.UnionRangeError{})
	})
}

func TestBlockIteration(t *testing.T) {
	t.Run("array with negative block consumes the size hint", func(t *testing.T) {
		p := mustCompile(t, `{"type": "array", "items": "long"}`)
		input := testutils.Flatten(
			testutils.Block(3, testutils.Long(1), testutils.Long(2), testutils.Long(3)),
			testutils.Long(-2),
			testutils.Long(2), // encoded byte size of the block; consumed, unused
			testutils.Long(4),
			testutils.Long(5),
			testutils.Long(0),
		)
		require.Equal(t, []any{
			int64(1), int64(2), int64(3), int64(4), int64(5),
		}, decodeOne(t, p, input))
	})

	t.Run("empty array", func(t *testing.T) {
		p := mustCompile(t, `{"type": "array", "items": "long"}`)
		require.Equal(t, []any{}, decodeOne(t, p, testutils.Long(0)))
	})

	t.Run("map decodes key value pairs", func(t *testing.T) {
		p := mustCompile(t, `{"type": "map", "values": "int"}`)
		input := testutils.Terminated(testutils.Block(2,
			testutils.String("a"), testutils.Int(1),
			testutils.String("b"), testutils.Int(2),
		))
		require.Equal(t, map[string]any{"a": int32(1), "b": int32(2)}, decodeOne(t, p, input))
	})

	t.Run("repeated map key last write wins", func(t *testing.T) {
		p := mustCompile(t, `{"type": "map", "values": "int"}`)
		input := testutils.Terminated(testutils.Block(2,
			testutils.String("a"), testutils.Int(1),
			testutils.String("a"), testutils.Int(2),
		))
		require.Equal(t, map[string]any{"a": int32(2)}, decodeOne(t, p, input))
	})

	t.Run("truncated block errors", func(t *testing.T) {
		p := mustCompile(t, `{"type": "array", "items": "long"}`)
		d := decode.NewDecoder(testutils.Long(3))
		_, err := p.DecodeValue(d)
		require.Error(t, err)
	})
}

func TestRecordFieldOrder(t *testing.T) {
	// x must be read before y regardless of their encoded sizes, or the
	// cursor lands in the middle of the wrong field.
	p := mustCompile(t, `{
		"type": "record",
		"name": "R",
		"fields": [
			{"name": "x", "type": "string"},
			{"name": "y", "type": "long"}
		]
	}`)
	input := testutils.Flatten(testutils.String("wide field"), testutils.Long(9))
	require.Equal(t, map[string]any{
		"x": "wide field",
		"y": int64(9),
	}, decodeOne(t, p, input))
}

func TestNestedRecords(t *testing.T) {
	p := mustCompile(t, `{
		"type": "record",
		"name": "Outer",
		"fields": [
			{"name": "inner", "type": {
				"type": "record",
				"name": "Inner",
				"fields": [{"name": "v", "type": "int"}]
			}},
			{"name": "tail", "type": "boolean"}
		]
	}`)
	input := testutils.Flatten(testutils.Int(5), testutils.Boolean(true))
	require.Equal(t, map[string]any{
		"inner": map[string]any{"v": int32(5)},
		"tail":  true,
	}, decodeOne(t, p, input))
}

func TestFixed(t *testing.T) {
	p := mustCompile(t, `{"type": "fixed", "name": "F", "size": 3}`)
	require.Equal(t, []byte{1, 2, 3}, decodeOne(t, p, []byte{1, 2, 3}))

	d := decode.NewDecoder([]byte{1, 2})
	_, err := p.DecodeValue(d)
	require.ErrorIs(t, err, decode.ShortReadError{})
}

func TestEnum(t *testing.T) {
	t.Run("index selects a symbol", func(t *testing.T) {
		p := mustCompile(t, `{"type": "enum", "name": "E", "symbols": ["A", "B"]}`)
		require.Equal(t, "A", decodeOne(t, p, testutils.Long(0)))
		require.Equal(t, "B", decodeOne(t, p, testutils.Long(1)))
	})

	t.Run("out of range index falls back to the declared default", func(t *testing.T) {
		p := mustCompile(t, `{"type": "enum", "name": "E", "symbols": ["A", "B"], "default": "A"}`)
		require.Equal(t, "A", decodeOne(t, p, testutils.Long(5)))
	})

	t.Run("out of range index with no default is an error", func(t *testing.T) {
		p := mustCompile(t, `{"type": "enum", "name": "E", "symbols": ["A", "B"]}`)
		d := decode.NewDecoder(testutils.Long(5))
		_, err := p.DecodeValue(d)
		require.Error(t, err)
	})
}

// encodeList encodes a linked list of the given depth against the Node
// schema used by TestRecursiveType.
func encodeList(depth int) []byte {
	// Innermost node: value, then null next.
	out := testutils.Flatten(testutils.Long(int64(depth)), testutils.Long(0))
	for i := depth - 1; i >= 0; i-- {
		out = testutils.Flatten(testutils.Long(int64(i)), testutils.Long(1), out)
	}
	return out
}

func TestRecursiveType(t *testing.T) {
	p := mustCompile(t, `{
		"type": "record",
		"name": "Node",
		"fields": [
			{"name": "value", "type": "long"},
			{"name": "next", "type": ["null", "Node"]}
		]
	}`)

	t.Run("decodes to depth 50", func(t *testing.T) {
		value := decodeOne(t, p, encodeList(50))
		depth := 0
		for {
			node, ok := value.(map[string]any)
			require.True(t, ok)
			require.Equal(t, int64(depth), node["value"])
			if node["next"] == nil {
				break
			}
			value = node["next"]
			depth++
		}
		require.Equal(t, 50, depth)
	})

	t.Run("terminates immediately", func(t *testing.T) {
		value := decodeOne(t, p, testutils.Flatten(testutils.Long(7), testutils.Long(0)))
		require.Equal(t, map[string]any{"value": int64(7), "next": nil}, value)
	})
}

func TestMutualRecursion(t *testing.T) {
	p := mustCompile(t, `{
		"type": "record",
		"name": "A",
		"fields": [
			{"name": "b", "type": ["null", {
				"type": "record",
				"name": "B",
				"fields": [{"name": "a", "type": ["null", "A"]}]
			}]}
		]
	}`)
	// A -> B -> A -> null
	input := testutils.Flatten(
		testutils.Long(1), // A.b populated
		testutils.Long(1), // B.a populated
		testutils.Long(0), // inner A.b null
	)
	require.Equal(t, map[string]any{
		"b": map[string]any{
			"a": map[string]any{"b": nil},
		},
	}, decodeOne(t, p, input))
}

func TestLogicalTypes(t *testing.T) {
	t.Run("decimal on bytes", func(t *testing.T) {
		p := mustCompile(t, `{"type": "bytes", "logicalType": "decimal", "precision": 4, "scale": 2}`)
		value := decodeOne(t, p, testutils.Bytes([]byte{0x30, 0x39}))
		want, _ := new(big.Rat).SetString("123.45")
		require.Zero(t, value.(*big.Rat).Cmp(want))
	})

	t.Run("decimal on fixed", func(t *testing.T) {
		p := mustCompile(t, `{
			"type": "fixed", "name": "D", "size": 2,
			"logicalType": "decimal", "precision": 4, "scale": 1
		}`)
		value := decodeOne(t, p, []byte{0x30, 0x39})
		want, _ := new(big.Rat).SetString("1234.5")
		require.Zero(t, value.(*big.Rat).Cmp(want))
	})

	t.Run("uuid", func(t *testing.T) {
		p := mustCompile(t, `{"type": "string", "logicalType": "uuid"}`)
		input := testutils.String("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
		value := decodeOne(t, p, input)
		require.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", value.(uuid.UUID).String())
	})

	t.Run("malformed uuid content is a decode error", func(t *testing.T) {
		p := mustCompile(t, `{"type": "string", "logicalType": "uuid"}`)
		d := decode.NewDecoder(testutils.String("not a uuid"))
		_, err := p.DecodeValue(d)
		require.Error(t, err)
	})

	t.Run("date", func(t *testing.T) {
		p := mustCompile(t, `{"type": "int", "logicalType": "date"}`)
		value := decodeOne(t, p, testutils.Int(40))
		require.Equal(t, time.Date(1970, 2, 10, 0, 0, 0, 0, time.UTC), value)
	})

	t.Run("time-millis", func(t *testing.T) {
		p := mustCompile(t, `{"type": "int", "logicalType": "time-millis"}`)
		require.Equal(t, 1500*time.Millisecond, decodeOne(t, p, testutils.Int(1500)))
	})

	t.Run("time-micros", func(t *testing.T) {
		p := mustCompile(t, `{"type": "long", "logicalType": "time-micros"}`)
		require.Equal(t, 1500*time.Microsecond, decodeOne(t, p, testutils.Long(1500)))
	})

	t.Run("timestamp-millis", func(t *testing.T) {
		p := mustCompile(t, `{"type": "long", "logicalType": "timestamp-millis"}`)
		value := decodeOne(t, p, testutils.Long(1500))
		require.Equal(t, time.Date(1970, 1, 1, 0, 0, 1, 500_000_000, time.UTC), value)
	})

	t.Run("timestamp-micros", func(t *testing.T) {
		p := mustCompile(t, `{"type": "long", "logicalType": "timestamp-micros"}`)
		value := decodeOne(t, p, testutils.Long(1_500_500))
		require.Equal(t, time.Date(1970, 1, 1, 0, 0, 1, 500_500_000, time.UTC), value)
	})
}

func TestLogicalFallback(t *testing.T) {
	t.Run("decimal with zero precision decodes as raw bytes", func(t *testing.T) {
		p := mustCompile(t, `{"type": "bytes", "logicalType": "decimal", "precision": 0, "scale": 0}`)
		require.Equal(t, []byte{1, 2}, decodeOne(t, p, testutils.Bytes([]byte{1, 2})))
	})

	t.Run("decimal with scale above precision falls back", func(t *testing.T) {
		p := mustCompile(t, `{"type": "bytes", "logicalType": "decimal", "precision": 2, "scale": 3}`)
		require.Equal(t, []byte{1}, decodeOne(t, p, testutils.Bytes([]byte{1})))
	})

	t.Run("uuid on a non-string physical type falls back", func(t *testing.T) {
		p := mustCompile(t, `{"type": "long", "logicalType": "uuid"}`)
		require.Equal(t, int64(12), decodeOne(t, p, testutils.Long(12)))
	})

	t.Run("timestamp on int falls back", func(t *testing.T) {
		p := mustCompile(t, `{"type": "int", "logicalType": "timestamp-millis"}`)
		require.Equal(t, int32(12), decodeOne(t, p, testutils.Int(12)))
	})

	t.Run("unknown logical type name falls back", func(t *testing.T) {
		p := mustCompile(t, `{"type": "long", "logicalType": "frobnicate"}`)
		require.Equal(t, int64(12), decodeOne(t, p, testutils.Long(12)))
	})
}

func TestCompileErrors(t *testing.T) {
	t.Run("empty node is rejected", func(t *testing.T) {
		_, err := plan.Compile(&schema.Type{})
		require.Error(t, err)
	})

	t.Run("dangling reference is rejected", func(t *testing.T) {
		_, err := plan.Compile(&schema.Type{Ref: "Missing"})
		require.Error(t, err)
	})

	t.Run("bad node nested in a record is rejected", func(t *testing.T) {
		_, err := plan.Compile(&schema.Type{
			Record: true,
			Name:   "R",
			Fields: []schema.Field{{Name: "f", Type: &schema.Type{}}},
		})
		require.Error(t, err)
	})
}

func TestConcurrentDecoding(t *testing.T) {
	p := mustCompile(t, `{
		"type": "record",
		"name": "R",
		"fields": [
			{"name": "a", "type": "string"},
			{"name": "b", "type": {"type": "array", "items": "long"}}
		]
	}`)
	input := testutils.Flatten(
		testutils.String("hello"),
		testutils.Terminated(testutils.Block(2, testutils.Long(1), testutils.Long(2))),
	)
	want := map[string]any{"a": "hello", "b": []any{int64(1), int64(2)}}

	g := errgroup.Group{}
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			d := decode.NewDecoder(input)
			for j := 0; j < 100; j++ {
				d.Reset()
				value, err := p.DecodeValue(d)
				if err != nil {
					return err
				}
				if !reflect.DeepEqual(want, value) {
					return fmt.Errorf("unexpected value %v", value)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
