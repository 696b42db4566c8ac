// Package resolver rewrites the two marker micro-syntaxes embedded in
// document scalars: $(dotted.path) global lookups and ^(name) module-kwarg
// substitutions. Global resolution runs once over the loaded document;
// kwarg substitution runs once per module instantiation, driven by the
// graph builder, so each use of a module template gets its own bindings.
package resolver

import (
	"regexp"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/cnnpruning/mayo/internal/arith"
	"github.com/cnnpruning/mayo/internal/dotpath"
	"github.com/cnnpruning/mayo/internal/yamldoc"
)

var (
	globalPattern = regexp.MustCompile(`\$\(([_a-zA-Z][_a-zA-Z0-9.]*)\)`)
	kwargPattern  = regexp.MustCompile(`\^\(([_a-zA-Z][_a-zA-Z0-9]*)\)`)
)

// Resolver substitutes markers against a single document root. It is not
// safe for concurrent use; each document gets its own instance.
type Resolver struct {
	root cty.Value

	// inProgress tracks $() paths on the current lookup stack so a chain
	// that revisits a path is rejected instead of recursing forever.
	inProgress map[string]struct{}
	stack      []string
}

// New creates a resolver for the given document root.
func New(root cty.Value) *Resolver {
	return &Resolver{
		root:       root,
		inProgress: make(map[string]struct{}),
	}
}

// ResolveDocument resolves all $() markers and !arith scalars in the
// document, returning the new tree. Strings carrying ^() markers are left
// untouched; they belong to module bodies and are substituted per
// instantiation during graph construction.
func (r *Resolver) ResolveDocument() (cty.Value, error) {
	return r.Resolve(r.root)
}

// Resolve resolves markers in a subtree of the document. Lookups always
// run against the full document root.
func (r *Resolver) Resolve(v cty.Value) (cty.Value, error) {
	v, marks := v.Unmark()
	if v.IsNull() {
		return v, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return r.resolveString(v.AsString(), len(marks) > 0)
	case ty.IsObjectType():
		if v.LengthInt() == 0 {
			return v, nil
		}
		attrs := make(map[string]cty.Value)
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			rv, err := r.Resolve(ev)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k.AsString()] = rv
		}
		return cty.ObjectVal(attrs), nil
	case ty.IsTupleType():
		if v.LengthInt() == 0 {
			return v, nil
		}
		elems := make([]cty.Value, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			rv, err := r.Resolve(ev)
			if err != nil {
				return cty.NilVal, err
			}
			elems = append(elems, rv)
		}
		return cty.TupleVal(elems), nil
	}
	return v.WithMarks(marks), nil
}

func (r *Resolver) resolveString(s string, isArith bool) (cty.Value, error) {
	// Module-kwarg markers are bound later, one pass per instantiation.
	if strings.Contains(s, "^(") {
		return rewrap(s, isArith), nil
	}

	matches := globalPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 1 && !isArith && s == matches[0][0] {
		// The whole scalar is a single marker: substitute the typed value.
		return r.lookup(matches[0][1])
	}
	for _, m := range matches {
		val, err := r.lookup(m[1])
		if err != nil {
			return cty.NilVal, err
		}
		s = strings.ReplaceAll(s, m[0], yamldoc.FormatScalar(val))
	}

	if isArith {
		return arith.Eval(s)
	}
	return cty.StringVal(s), nil
}

// lookup resolves one dotted path against the document root. The raw value
// found there is itself resolved before being returned, so chained markers
// collapse to their final scalar.
func (r *Resolver) lookup(path string) (cty.Value, error) {
	if _, active := r.inProgress[path]; active {
		return cty.NilVal, &CyclicReferenceError{Chain: append(append([]string{}, r.stack...), path)}
	}
	r.inProgress[path] = struct{}{}
	r.stack = append(r.stack, path)
	defer func() {
		delete(r.inProgress, path)
		r.stack = r.stack[:len(r.stack)-1]
	}()

	raw, err := dotpath.Walk(r.root, path)
	if err != nil {
		return cty.NilVal, &UnresolvedMarkerError{Marker: "$(" + path + ")", Reason: err.Error()}
	}
	resolved, err := r.Resolve(raw)
	if err != nil {
		return cty.NilVal, err
	}
	if !yamldoc.IsScalar(resolved) {
		return cty.NilVal, &UnresolvedMarkerError{
			Marker: "$(" + path + ")",
			Reason: "path does not terminate in a scalar value",
		}
	}
	return resolved, nil
}

func rewrap(s string, isArith bool) cty.Value {
	v := cty.StringVal(s)
	if isArith {
		v = v.Mark(yamldoc.ArithMark{})
	}
	return v
}
