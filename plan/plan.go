package plan

import (
	"fmt"
	"sort"

	"github.com/wkalt/avroplan/decode"
	"github.com/wkalt/avroplan/schema"
	"golang.org/x/exp/maps"
)

/*
The plan module compiles a resolved schema tree into a decoding plan: a
tree of closures, one per schema node, composed once at compile time and
invoked once per value at decode time. Interpreting the schema is paid for
at compile; decoding never inspects schema nodes.

Recursively-defined named types get one shared procedure each, built
before any call sites, so references compile to calls through the shared
table rather than unbounded inline expansion. Everything else is inlined.
*/

////////////////////////////////////////////////////////////////////////////////

// decodeFunc decodes one value from a byte source.
type decodeFunc func(d *decode.Decoder) (any, error)

// Plan is a compiled decoding plan. It is immutable and stateless after
// construction: it may be invoked repeatedly, and concurrently so long as
// each invocation drives its own decoder.
type Plan struct {
	root decodeFunc
}

// DecodeValue decodes one value from the decoder. The returned value
// belongs exclusively to the caller; the plan retains no reference to it.
func (p *Plan) DecodeValue(d *decode.Decoder) (any, error) {
	return p.root(d)
}

// sharedProc is a table entry for a recursive named type. Call sites hold
// the entry, not the procedure, so they can be compiled before the
// procedure exists.
type sharedProc struct {
	fn decodeFunc
}

type compiler struct {
	shared map[string]*sharedProc
}

// Compile compiles a resolved schema tree into a decoding plan. An
// unrecognized or malformed schema node aborts compilation; no partial
// plan is returned.
func Compile(t *schema.Type) (*Plan, error) {
	recursive := schema.RecursiveTypes(t)
	c := &compiler{shared: make(map[string]*sharedProc, len(recursive))}
	for name := range recursive {
		c.shared[name] = &sharedProc{}
	}
	names := maps.Keys(recursive)
	sort.Strings(names)
	for _, name := range names {
		fn, err := c.compileNode(recursive[name])
		if err != nil {
			return nil, fmt.Errorf("failed to compile recursive type %s: %w", name, err)
		}
		c.shared[name].fn = fn
	}
	root, err := c.compileNode(t)
	if err != nil {
		return nil, err
	}
	return &Plan{root: root}, nil
}
