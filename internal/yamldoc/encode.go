package yamldoc

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// ToGo converts a cty value tree back into plain Go containers, suitable
// for YAML/JSON encoding. Marks are discarded; an unevaluated !arith scalar
// round-trips as its expression text.
func ToGo(v cty.Value) (any, error) {
	v, _ = v.Unmark()
	if v.IsNull() {
		return nil, nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if i, acc := bf.Int64(); acc == big.Exact {
			return i, nil
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsObjectType() || ty.IsMapType():
		m := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			gv, err := ToGo(ev)
			if err != nil {
				return nil, err
			}
			m[k.AsString()] = gv
		}
		return m, nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		s := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			gv, err := ToGo(ev)
			if err != nil {
				return nil, err
			}
			s = append(s, gv)
		}
		return s, nil
	}
	return nil, fmt.Errorf("cannot encode value of type %s", ty.FriendlyName())
}

// MarshalYAML encodes a cty value tree as a YAML document with an explicit
// document start marker.
func MarshalYAML(v cty.Value) ([]byte, error) {
	gv, err := ToGo(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(4)
	if err := enc.Encode(gv); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsScalar reports whether v is a string, number, or bool. Null values are
// not scalars for substitution purposes.
func IsScalar(v cty.Value) bool {
	if v == cty.NilVal {
		return false
	}
	v, _ = v.Unmark()
	if v.IsNull() {
		return false
	}
	ty := v.Type()
	return ty == cty.String || ty == cty.Number || ty == cty.Bool
}

// FormatScalar renders a scalar value as it should appear when embedded in
// a longer string during marker substitution.
func FormatScalar(v cty.Value) string {
	v, _ = v.Unmark()
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Bool:
		return fmt.Sprintf("%t", v.True())
	case cty.Number:
		bf := v.AsBigFloat()
		if i, acc := bf.Int64(); acc == big.Exact {
			return fmt.Sprintf("%d", i)
		}
		return bf.Text('g', -1)
	}
	return v.GoString()
}

// Attr looks up a named key in an object value, tolerating non-object and
// null values. cty.GetAttr panics on a missing attribute, so every lookup
// into user-supplied trees goes through here.
func Attr(v cty.Value, name string) (cty.Value, bool) {
	if v == cty.NilVal {
		return cty.NilVal, false
	}
	v, _ = v.Unmark()
	if v.IsNull() || !v.Type().IsObjectType() || !v.Type().HasAttribute(name) {
		return cty.NilVal, false
	}
	return v.GetAttr(name), true
}

// AttrNames returns the keys of an object value in sorted order, so callers
// that iterate mappings behave deterministically.
func AttrNames(v cty.Value) []string {
	if v == cty.NilVal {
		return nil
	}
	v, _ = v.Unmark()
	if v.IsNull() || !v.Type().IsObjectType() {
		return nil
	}
	names := make([]string, 0, len(v.Type().AttributeTypes()))
	for name := range v.Type().AttributeTypes() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
