package yamldoc

import (
	"math/big"
	"os"
	"strconv"

	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// ArithMark marks string values loaded from a `!arith` tagged scalar. The
// resolver evaluates marked strings to numbers once all embedded markers
// have been substituted.
type ArithMark struct{}

const (
	tagMerge = "!!merge"
	tagArith = "!arith"
)

// Parse loads a single YAML document into a cty value tree.
func Parse(src []byte) (cty.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return cty.NilVal, &ParseError{Msg: err.Error()}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return cty.EmptyObjectVal, nil
	}

	w := &walker{aliasing: make(map[*yaml.Node]bool)}
	return w.value(doc.Content[0])
}

// ParseFile loads a single YAML document from the file at path. Errors are
// annotated with the path so callers can surface the offending document.
func ParseFile(path string) (cty.Value, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return cty.NilVal, err
	}
	v, err := Parse(src)
	if err != nil {
		if perr, ok := err.(*ParseError); ok {
			perr.Path = path
		}
		return cty.NilVal, err
	}
	return v, nil
}

// walker converts yaml.v3 nodes into cty values. The aliasing set tracks
// anchored nodes currently being expanded so self-referential aliases are
// rejected instead of recursing forever.
type walker struct {
	aliasing map[*yaml.Node]bool
}

func (w *walker) value(n *yaml.Node) (cty.Value, error) {
	switch n.Kind {
	case yaml.AliasNode:
		if n.Alias == nil {
			return cty.NilVal, parseErrorf(n.Line, n.Column, "alias %q has no anchor", n.Value)
		}
		if w.aliasing[n.Alias] {
			return cty.NilVal, parseErrorf(n.Line, n.Column, "anchor %q contains itself", n.Value)
		}
		w.aliasing[n.Alias] = true
		defer delete(w.aliasing, n.Alias)
		// Re-walking the anchored node rebuilds fresh values, so every
		// alias expansion is an independent copy.
		return w.value(n.Alias)
	case yaml.MappingNode:
		return w.mapping(n)
	case yaml.SequenceNode:
		return w.sequence(n)
	case yaml.ScalarNode:
		return w.scalar(n)
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return cty.EmptyObjectVal, nil
		}
		return w.value(n.Content[0])
	}
	return cty.NilVal, parseErrorf(n.Line, n.Column, "unsupported node kind %d", n.Kind)
}

func (w *walker) mapping(n *yaml.Node) (cty.Value, error) {
	merged := make(map[string]cty.Value)
	explicit := make(map[string]cty.Value)

	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valNode := n.Content[i], n.Content[i+1]

		if keyNode.Tag == tagMerge {
			if err := w.merge(valNode, merged); err != nil {
				return cty.NilVal, err
			}
			continue
		}

		if keyNode.Kind != yaml.ScalarNode {
			return cty.NilVal, parseErrorf(keyNode.Line, keyNode.Column, "mapping key must be a scalar")
		}
		val, err := w.value(valNode)
		if err != nil {
			return cty.NilVal, err
		}
		// Duplicate keys: the last occurrence wins.
		explicit[keyNode.Value] = val
	}

	// Explicit sibling keys always override merged-in values.
	for k, v := range explicit {
		merged[k] = v
	}
	if len(merged) == 0 {
		return cty.EmptyObjectVal, nil
	}
	return cty.ObjectVal(merged), nil
}

// merge applies one `<<` entry into dst. The merge value is either a single
// mapping (usually an alias) or a sequence of mappings; sources apply in
// listed order with later entries overriding earlier ones.
func (w *walker) merge(valNode *yaml.Node, dst map[string]cty.Value) error {
	sources := []*yaml.Node{valNode}
	if valNode.Kind == yaml.SequenceNode {
		sources = valNode.Content
	}
	for _, src := range sources {
		v, err := w.value(src)
		if err != nil {
			return err
		}
		if v.IsNull() || !v.Type().IsObjectType() {
			return parseErrorf(src.Line, src.Column, "merge value must be a mapping")
		}
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			dst[k.AsString()] = ev
		}
	}
	return nil
}

func (w *walker) sequence(n *yaml.Node) (cty.Value, error) {
	if len(n.Content) == 0 {
		return cty.EmptyTupleVal, nil
	}
	vals := make([]cty.Value, 0, len(n.Content))
	for _, c := range n.Content {
		v, err := w.value(c)
		if err != nil {
			return cty.NilVal, err
		}
		vals = append(vals, v)
	}
	return cty.TupleVal(vals), nil
}

func (w *walker) scalar(n *yaml.Node) (cty.Value, error) {
	switch n.Tag {
	case "!!null":
		return cty.NullVal(cty.DynamicPseudoType), nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return cty.NilVal, parseErrorf(n.Line, n.Column, "invalid boolean %q", n.Value)
		}
		return cty.BoolVal(b), nil
	case "!!int", "!!float":
		return w.number(n)
	case tagArith:
		return cty.StringVal(n.Value).Mark(ArithMark{}), nil
	default:
		// Strings, timestamps and any unrecognised scalar tag load as text.
		return cty.StringVal(n.Value), nil
	}
}

func (w *walker) number(n *yaml.Node) (cty.Value, error) {
	if f, _, err := big.ParseFloat(n.Value, 10, 512, big.ToNearestEven); err == nil {
		return cty.NumberVal(f), nil
	}
	// Decimal parsing rejects the 0x/0o forms YAML still permits.
	if i, err := strconv.ParseInt(n.Value, 0, 64); err == nil {
		return cty.NumberIntVal(i), nil
	}
	return cty.NilVal, parseErrorf(n.Line, n.Column, "invalid number %q", n.Value)
}
