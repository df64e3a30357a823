package schema

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

/*
Avro schema JSON parsing and normalization. Parse accepts any of the
standard schema shapes - a bare primitive name, a type object, or a union
array - and produces a self-contained Type tree. Named types are recorded
as they are defined and inlined (by shared pointer) wherever they are
referenced afterward. A reference to a type whose definition is still on
the parse stack is a cycle, and becomes a Ref node instead.
*/

////////////////////////////////////////////////////////////////////////////////

var primitiveNames = map[string]PrimitiveType{ // nolint:gochecknoglobals
	"null":    NULL,
	"boolean": BOOLEAN,
	"int":     INT,
	"long":    LONG,
	"float":   FLOAT,
	"double":  DOUBLE,
	"bytes":   BYTES,
	"string":  STRING,
}

type parser struct {
	defs     map[string]*Type
	building map[string]bool
}

// Parse parses an Avro schema JSON document into a resolved Type tree.
func Parse(data []byte) (*Type, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse schema json: %w", err)
	}
	p := &parser{
		defs:     make(map[string]*Type),
		building: make(map[string]bool),
	}
	t, err := p.parse(raw, "")
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (p *parser) parse(raw any, namespace string) (*Type, error) {
	switch v := raw.(type) {
	case string:
		return p.parseName(v, namespace)
	case []any:
		branches := make([]*Type, len(v))
		for i, branch := range v {
			b, err := p.parse(branch, namespace)
			if err != nil {
				return nil, fmt.Errorf("failed to parse union branch %d: %w", i, err)
			}
			branches[i] = b
		}
		return &Type{Union: true, Branches: branches}, nil
	case map[string]any:
		return p.parseObject(v, namespace)
	default:
		return nil, fmt.Errorf("unsupported schema element: %v", raw)
	}
}

// parseName resolves a bare type name: a primitive, or a reference to a
// previously-defined named type. References to types still being defined
// break the cycle with a Ref node.
func (p *parser) parseName(name string, namespace string) (*Type, error) {
	if primitive, ok := primitiveNames[name]; ok {
		return &Type{Primitive: primitive}, nil
	}
	candidates := []string{name}
	if !strings.Contains(name, ".") && namespace != "" {
		candidates = []string{namespace + "." + name, name}
	}
	for _, candidate := range candidates {
		if p.building[candidate] {
			return &Type{Ref: candidate}, nil
		}
		if def, ok := p.defs[candidate]; ok {
			return def, nil
		}
	}
	return nil, fmt.Errorf("unresolved type name %q", name)
}

func (p *parser) parseObject(v map[string]any, namespace string) (*Type, error) {
	rawtype, ok := v["type"]
	if !ok {
		return nil, fmt.Errorf("schema object missing type: %v", v)
	}
	typename, ok := rawtype.(string)
	if !ok {
		// The type attribute can itself be a full schema, e.g.
		// {"type": {"type": "array", ...}}.
		return p.parse(rawtype, namespace)
	}

	var t *Type
	var err error
	switch typename {
	case "record", "error":
		t, err = p.parseRecord(v, namespace)
	case "enum":
		t, err = p.parseEnum(v, namespace)
	case "fixed":
		t, err = p.parseFixed(v, namespace)
	case "array":
		items, ok := v["items"]
		if !ok {
			return nil, fmt.Errorf("array schema missing items: %v", v)
		}
		itemtype, err := p.parse(items, namespace)
		if err != nil {
			return nil, fmt.Errorf("failed to parse array items: %w", err)
		}
		t = &Type{Array: true, Items: itemtype}
	case "map":
		values, ok := v["values"]
		if !ok {
			return nil, fmt.Errorf("map schema missing values: %v", v)
		}
		valuetype, err := p.parse(values, namespace)
		if err != nil {
			return nil, fmt.Errorf("failed to parse map values: %w", err)
		}
		t = &Type{Map: true, Values: valuetype}
	default:
		t, err = p.parseName(typename, namespace)
	}
	if err != nil {
		return nil, err
	}

	if logical, ok := v["logicalType"].(string); ok {
		// Do not annotate a shared named-type definition in place.
		annotated := *t
		annotated.LogicalType = logical
		annotated.Precision = intAttr(v, "precision")
		annotated.Scale = intAttr(v, "scale")
		t = &annotated
	}
	return t, nil
}

func (p *parser) parseRecord(v map[string]any, namespace string) (*Type, error) {
	full, ns, err := fullname(v, namespace)
	if err != nil {
		return nil, err
	}
	rawfields, ok := v["fields"].([]any)
	if !ok {
		return nil, fmt.Errorf("record %s missing fields", full)
	}
	t := &Type{Record: true, Name: full}
	p.building[full] = true
	for i, rawfield := range rawfields {
		field, ok := rawfield.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %s field %d is not an object", full, i)
		}
		name, ok := field["name"].(string)
		if !ok {
			return nil, fmt.Errorf("record %s field %d missing name", full, i)
		}
		fieldtype, err := p.parse(field["type"], ns)
		if err != nil {
			return nil, fmt.Errorf("failed to parse field %s.%s: %w", full, name, err)
		}
		t.Fields = append(t.Fields, Field{Name: name, Type: fieldtype})
	}
	delete(p.building, full)
	p.defs[full] = t
	return t, nil
}

func (p *parser) parseEnum(v map[string]any, namespace string) (*Type, error) {
	full, _, err := fullname(v, namespace)
	if err != nil {
		return nil, err
	}
	rawsymbols, ok := v["symbols"].([]any)
	if !ok {
		return nil, fmt.Errorf("enum %s missing symbols", full)
	}
	symbols := make([]string, len(rawsymbols))
	for i, rawsymbol := range rawsymbols {
		symbol, ok := rawsymbol.(string)
		if !ok {
			return nil, fmt.Errorf("enum %s symbol %d is not a string", full, i)
		}
		symbols[i] = symbol
	}
	t := &Type{Enum: true, Name: full, Symbols: symbols}
	if dflt, ok := v["default"].(string); ok {
		t.Default = dflt
	}
	p.defs[full] = t
	return t, nil
}

func (p *parser) parseFixed(v map[string]any, namespace string) (*Type, error) {
	full, _, err := fullname(v, namespace)
	if err != nil {
		return nil, err
	}
	size := intAttr(v, "size")
	if size <= 0 {
		return nil, fmt.Errorf("fixed %s has invalid size %d", full, size)
	}
	t := &Type{Fixed: true, Name: full, Size: size}
	p.defs[full] = t
	return t, nil
}

// fullname computes the full name of a named type and the namespace its
// children inherit.
func fullname(v map[string]any, enclosing string) (string, string, error) {
	name, ok := v["name"].(string)
	if !ok || name == "" {
		return "", "", fmt.Errorf("named type missing name: %v", v)
	}
	if strings.Contains(name, ".") {
		idx := strings.LastIndex(name, ".")
		return name, name[:idx], nil
	}
	namespace := enclosing
	if ns, ok := v["namespace"].(string); ok {
		namespace = ns
	}
	if namespace == "" {
		return name, "", nil
	}
	return namespace + "." + name, namespace, nil
}

func intAttr(v map[string]any, key string) int {
	if f, ok := v[key].(float64); ok {
		return int(f)
	}
	return 0
}
