package schema

/*
The schema node model. A Type is a tagged variant over every Avro schema
node kind: the eight primitives, records, enums, fixeds, arrays, maps,
unions, named references, and logical-type annotations. Trees handed to the
plan compiler are fully resolved - every named reference has been inlined
by the parser except references that participate in a cycle, which remain
as Ref nodes and are the compiler's cue to emit a shared procedure call.
*/

////////////////////////////////////////////////////////////////////////////////

// PrimitiveType enumerates the Avro primitive kinds.
type PrimitiveType int

const (
	NULL PrimitiveType = iota + 1
	BOOLEAN
	INT
	LONG
	FLOAT
	DOUBLE
	BYTES
	STRING
)

// String returns the Avro name of the primitive.
func (p PrimitiveType) String() string {
	switch p {
	case NULL:
		return "null"
	case BOOLEAN:
		return "boolean"
	case INT:
		return "int"
	case LONG:
		return "long"
	case FLOAT:
		return "float"
	case DOUBLE:
		return "double"
	case BYTES:
		return "bytes"
	case STRING:
		return "string"
	default:
		return "unknown"
	}
}

// Type is a node in a resolved schema tree. Exactly one of the kind
// markers below is set per node. Non-cyclic named types are shared by
// pointer wherever they are referenced, so the tree is a DAG; Ref nodes
// appear only where inlining would recurse forever.
type Type struct {
	Primitive PrimitiveType

	// If it's a reference to a recursively-defined named type...
	Ref string

	// If it's a union...
	Union    bool
	Branches []*Type

	// If it's a record...
	Record bool
	Fields []Field

	// If it's an array or map...
	Array  bool
	Items  *Type
	Map    bool
	Values *Type

	// If it's a fixed...
	Fixed bool
	Size  int

	// If it's an enum... Default is empty when no default symbol was
	// declared; the empty string is not a legal Avro symbol name.
	Enum    bool
	Symbols []string
	Default string

	// Name is set for records, enums, and fixeds (full name, including
	// namespace when one was declared).
	Name string

	// Logical-type annotation, when present, refines the interpretation
	// of the node it is set on. Precision and Scale apply to decimals.
	LogicalType string
	Precision   int
	Scale       int
}

// Field is a named field of a record.
type Field struct {
	Name string
	Type *Type
}

// IsPrimitive reports whether the node is a primitive.
func (t *Type) IsPrimitive() bool {
	return t.Primitive > 0
}

// IsNamed reports whether the node carries a named-type identity.
func (t *Type) IsNamed() bool {
	return t.Record || t.Enum || t.Fixed
}
