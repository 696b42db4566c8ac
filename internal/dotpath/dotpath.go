// Package dotpath walks cty value trees by dot-separated key paths, the
// addressing scheme used both by $() markers and by command-line overrides
// such as "dataset.task.num_classes=100". Integer segments index into
// sequences.
package dotpath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// NotFoundError reports a path segment that does not exist in the tree.
type NotFoundError struct {
	Path    string
	Segment string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("key path %q not found: missing segment %q", e.Path, e.Segment)
}

// TraverseError reports a path that descends into a value which is not
// key-addressable, such as indexing into a scalar.
type TraverseError struct {
	Path    string
	Segment string
}

// Error implements the error interface.
func (e *TraverseError) Error() string {
	return fmt.Sprintf("key path %q stopped at %q: value is not key-addressable", e.Path, e.Segment)
}

// Walk resolves a dot-separated key path against root and returns the value
// found there.
func Walk(root cty.Value, path string) (cty.Value, error) {
	current := root
	for _, seg := range strings.Split(path, ".") {
		next, err := step(current, path, seg)
		if err != nil {
			return cty.NilVal, err
		}
		current = next
	}
	return current, nil
}

func step(v cty.Value, path, seg string) (cty.Value, error) {
	v, _ = v.Unmark()
	if v.IsNull() {
		return cty.NilVal, &TraverseError{Path: path, Segment: seg}
	}
	ty := v.Type()
	switch {
	case ty.IsObjectType():
		if !ty.HasAttribute(seg) {
			return cty.NilVal, &NotFoundError{Path: path, Segment: seg}
		}
		return v.GetAttr(seg), nil
	case ty.IsTupleType() || ty.IsListType():
		idx, err := strconv.Atoi(seg)
		if err != nil {
			return cty.NilVal, &TraverseError{Path: path, Segment: seg}
		}
		if idx < 0 || idx >= v.LengthInt() {
			return cty.NilVal, &NotFoundError{Path: path, Segment: seg}
		}
		return v.Index(cty.NumberIntVal(int64(idx))), nil
	}
	return cty.NilVal, &TraverseError{Path: path, Segment: seg}
}

// Set returns a copy of root with the value at the dot-separated key path
// replaced. Missing intermediate mappings are created; descending through
// an existing scalar is an error.
func Set(root cty.Value, path string, val cty.Value) (cty.Value, error) {
	return set(root, path, strings.Split(path, "."), val)
}

func set(v cty.Value, path string, segs []string, val cty.Value) (cty.Value, error) {
	if len(segs) == 0 {
		return val, nil
	}
	seg := segs[0]
	if v == cty.NilVal {
		v = cty.EmptyObjectVal
	}
	v, _ = v.Unmark()
	if v.IsNull() {
		v = cty.EmptyObjectVal
	}
	ty := v.Type()
	switch {
	case ty.IsObjectType():
		attrs := make(map[string]cty.Value)
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			attrs[k.AsString()] = ev
		}
		child, ok := attrs[seg]
		if !ok {
			child = cty.EmptyObjectVal
		}
		replaced, err := set(child, path, segs[1:], val)
		if err != nil {
			return cty.NilVal, err
		}
		attrs[seg] = replaced
		return cty.ObjectVal(attrs), nil
	case ty.IsTupleType():
		idx, err := strconv.Atoi(seg)
		if err != nil {
			return cty.NilVal, &TraverseError{Path: path, Segment: seg}
		}
		if idx < 0 || idx >= v.LengthInt() {
			return cty.NilVal, &NotFoundError{Path: path, Segment: seg}
		}
		elems := make([]cty.Value, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			elems = append(elems, ev)
		}
		replaced, err := set(elems[idx], path, segs[1:], val)
		if err != nil {
			return cty.NilVal, err
		}
		elems[idx] = replaced
		return cty.TupleVal(elems), nil
	}
	return cty.NilVal, &TraverseError{Path: path, Segment: seg}
}
