package schema

/*
Detection of recursively-defined named types. A named type is recursive
when the tree reaches a Ref node carrying its name - directly (a record
field typed with its enclosing record) or mutually (A contains B contains
A). The plan compiler consumes the resulting set to decide which named
types get a shared decoding procedure rather than inline expansion.
*/

////////////////////////////////////////////////////////////////////////////////

// RecursiveTypes walks a resolved tree and returns the named types that
// participate in a reference cycle, keyed by full name and mapped to
// their definitions. A Ref node always names an ancestor definition, so
// every member of the set resolves.
func RecursiveTypes(root *Type) map[string]*Type {
	defs := make(map[string]*Type)
	out := make(map[string]*Type)
	seen := make(map[*Type]bool)
	var walk func(t *Type)
	walk = func(t *Type) {
		if t == nil || seen[t] {
			return
		}
		seen[t] = true
		switch {
		case t.Ref != "":
			if def, ok := defs[t.Ref]; ok {
				out[t.Ref] = def
			}
		case t.Record:
			defs[t.Name] = t
			for _, field := range t.Fields {
				walk(field.Type)
			}
		case t.Union:
			for _, branch := range t.Branches {
				walk(branch)
			}
		case t.Array:
			walk(t.Items)
		case t.Map:
			walk(t.Values)
		}
	}
	walk(root)
	return out
}
