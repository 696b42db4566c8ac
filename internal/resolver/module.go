package resolver

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/cnnpruning/mayo/internal/yamldoc"
)

// ExpandModule performs one instantiation's ^() substitution over a module
// layer spec and resolves the result. The bindings come from the
// instantiation site: explicit sibling keys of the module usage override
// the defaults declared in kwargs. Each call produces an independent copy,
// so two usages of the same module template never share substitutions.
func (r *Resolver) ExpandModule(params cty.Value) (cty.Value, error) {
	params, _ = params.Unmark()
	if params.IsNull() || !params.Type().IsObjectType() {
		return cty.NilVal, fmt.Errorf("module layer spec must be a mapping")
	}
	bindings, err := r.moduleBindings(params)
	if err != nil {
		return cty.NilVal, err
	}

	attrs := make(map[string]cty.Value)
	for it := params.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		attrs[k.AsString()] = ev
	}
	for _, section := range []string{"layers", "graph"} {
		body, ok := attrs[section]
		if !ok {
			continue
		}
		substituted, err := r.substValue(body, bindings)
		if err != nil {
			return cty.NilVal, err
		}
		// Global markers and arithmetic inside the expanded body resolve
		// only now, after the instantiation's kwargs are in place.
		resolved, err := r.Resolve(substituted)
		if err != nil {
			return cty.NilVal, err
		}
		attrs[section] = resolved
	}
	return cty.ObjectVal(attrs), nil
}

// moduleBindings computes the kwarg bindings for one instantiation. Every
// declared kwarg is bound, either to the override given where the module is
// used or to its default. Unsupplied kwargs with null defaults stay null
// and fail only if a marker actually references them.
func (r *Resolver) moduleBindings(params cty.Value) (map[string]cty.Value, error) {
	kwargs, ok := yamldoc.Attr(params, "kwargs")
	if !ok {
		return nil, nil
	}
	bindings := make(map[string]cty.Value)
	for _, name := range yamldoc.AttrNames(kwargs) {
		bound, ok := yamldoc.Attr(params, name)
		if !ok {
			bound, _ = yamldoc.Attr(kwargs, name)
		}
		resolved, err := r.Resolve(bound)
		if err != nil {
			return nil, err
		}
		bindings[name] = resolved
	}
	return bindings, nil
}

// substValue rewrites ^() markers throughout a module body. Nested module
// specs are a boundary: only their kwarg-override keys see the enclosing
// bindings, while their layers and graph wait for their own expansion.
func (r *Resolver) substValue(v cty.Value, bindings map[string]cty.Value) (cty.Value, error) {
	v, marks := v.Unmark()
	if v.IsNull() {
		return v, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return r.substString(v.AsString(), len(marks) > 0, bindings)
	case ty.IsObjectType():
		if isModuleSpec(v) {
			return r.substInnerModule(v, bindings)
		}
		if v.LengthInt() == 0 {
			return v, nil
		}
		attrs := make(map[string]cty.Value)
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			sv, err := r.substValue(ev, bindings)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k.AsString()] = sv
		}
		return cty.ObjectVal(attrs), nil
	case ty.IsTupleType():
		if v.LengthInt() == 0 {
			return v, nil
		}
		elems := make([]cty.Value, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			sv, err := r.substValue(ev, bindings)
			if err != nil {
				return cty.NilVal, err
			}
			elems = append(elems, sv)
		}
		return cty.TupleVal(elems), nil
	}
	return v.WithMarks(marks), nil
}

// substInnerModule substitutes the enclosing bindings into an inner module
// usage. Only keys that override the inner module's own kwargs are touched:
// those are the values the outer module passes down.
func (r *Resolver) substInnerModule(v cty.Value, bindings map[string]cty.Value) (cty.Value, error) {
	innerKwargs, _ := yamldoc.Attr(v, "kwargs")
	overridable := make(map[string]bool)
	for _, name := range yamldoc.AttrNames(innerKwargs) {
		overridable[name] = true
	}

	attrs := make(map[string]cty.Value)
	for it := v.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		name := k.AsString()
		if !overridable[name] {
			attrs[name] = ev
			continue
		}
		sv, err := r.substValue(ev, bindings)
		if err != nil {
			return cty.NilVal, err
		}
		attrs[name] = sv
	}
	return cty.ObjectVal(attrs), nil
}

func (r *Resolver) substString(s string, isArith bool, bindings map[string]cty.Value) (cty.Value, error) {
	// Substitution repeats because a binding may itself contain markers.
	// The pass count is bounded by the binding count: anything beyond that
	// is a self-referential chain.
	maxPasses := len(bindings) + 1
	for pass := 0; ; pass++ {
		matches := kwargPattern.FindAllStringSubmatch(s, -1)
		if len(matches) == 0 {
			break
		}
		if pass >= maxPasses {
			return cty.NilVal, &CyclicReferenceError{Chain: []string{"^(" + matches[0][1] + ")"}}
		}

		if len(matches) == 1 && !isArith && s == matches[0][0] {
			bound, err := r.binding(matches[0][1], bindings)
			if err != nil {
				return cty.NilVal, err
			}
			boundU, boundMarks := bound.Unmark()
			if boundU.Type() == cty.String {
				// A string binding may itself carry markers or an arith
				// expression; loop again over its content.
				s = boundU.AsString()
				if _, ok := boundMarks[yamldoc.ArithMark{}]; ok {
					isArith = true
				}
				continue
			}
			// Non-string bindings substitute as typed values, so a
			// whole-scalar marker can carry numbers, bools or structures.
			return bound, nil
		}

		for _, m := range matches {
			bound, err := r.binding(m[1], bindings)
			if err != nil {
				return cty.NilVal, err
			}
			if !yamldoc.IsScalar(bound) {
				return cty.NilVal, &UnresolvedMarkerError{
					Marker: m[0],
					Reason: "non-scalar value cannot be embedded in a string",
				}
			}
			s = strings.ReplaceAll(s, m[0], yamldoc.FormatScalar(bound))
		}
	}
	return rewrap(s, isArith), nil
}

func (r *Resolver) binding(name string, bindings map[string]cty.Value) (cty.Value, error) {
	bound, ok := bindings[name]
	if !ok {
		return cty.NilVal, &UnresolvedMarkerError{
			Marker: "^(" + name + ")",
			Reason: "not a declared module kwarg",
		}
	}
	if bound == cty.NilVal || bound.IsNull() {
		return cty.NilVal, &UnresolvedMarkerError{
			Marker: "^(" + name + ")",
			Reason: "no value supplied and no default declared",
		}
	}
	return bound, nil
}

func isModuleSpec(v cty.Value) bool {
	t, ok := yamldoc.Attr(v, "type")
	if !ok {
		return false
	}
	t, _ = t.Unmark()
	return !t.IsNull() && t.Type() == cty.String && t.AsString() == "module"
}
