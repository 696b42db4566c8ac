package config

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/cnnpruning/mayo/internal/dotpath"
	"github.com/cnnpruning/mayo/internal/resolver"
	"github.com/cnnpruning/mayo/internal/schema"
	"github.com/cnnpruning/mayo/internal/yamldoc"
)

// Config is a composed configuration document.
type Config struct {
	root cty.Value
}

// New creates an empty configuration.
func New() *Config {
	return &Config{root: cty.EmptyObjectVal}
}

// fromRoot wraps an already-built tree, used by Resolve.
func fromRoot(root cty.Value) *Config {
	return &Config{root: root}
}

// Root returns the underlying value tree.
func (c *Config) Root() cty.Value {
	return c.root
}

// MergeFile loads the YAML document at path and deep-merges it into the
// configuration. Later files override earlier ones key by key.
func (c *Config) MergeFile(path string) error {
	doc, err := yamldoc.ParseFile(path)
	if err != nil {
		return err
	}
	c.Merge(doc)
	return nil
}

// Merge deep-merges another document tree into the configuration: mappings
// merge recursively, any other value is replaced wholesale.
func (c *Config) Merge(doc cty.Value) {
	c.root = mergeValue(c.root, doc)
}

func mergeValue(dst, src cty.Value) cty.Value {
	if dst == cty.NilVal || src == cty.NilVal {
		return src
	}
	dstU, _ := dst.Unmark()
	srcU, _ := src.Unmark()
	if dstU.IsNull() || !dstU.Type().IsObjectType() ||
		srcU.IsNull() || !srcU.Type().IsObjectType() {
		return src
	}
	attrs := make(map[string]cty.Value)
	for it := dstU.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		attrs[k.AsString()] = ev
	}
	for it := srcU.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		name := k.AsString()
		if existing, ok := attrs[name]; ok {
			attrs[name] = mergeValue(existing, ev)
			continue
		}
		attrs[name] = ev
	}
	if len(attrs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(attrs)
}

// Override sets a dotted key path to a value given as YAML text, the
// command-line override form "system.num_gpus=2".
func (c *Config) Override(key, rawValue string) error {
	val, err := yamldoc.Parse([]byte(rawValue))
	if err != nil {
		return fmt.Errorf("invalid override value for %q: %w", key, err)
	}
	root, err := dotpath.Set(c.root, key, val)
	if err != nil {
		return err
	}
	c.root = root
	return nil
}

// Get walks a dotted key path through the document.
func (c *Config) Get(path string) (cty.Value, error) {
	return dotpath.Walk(c.root, path)
}

// Resolve validates the composed document structurally, resolves all $()
// markers and !arith scalars, and returns the resolved snapshot. The
// receiver is left untouched.
func (c *Config) Resolve() (*Config, error) {
	if err := schema.Validate(c.root); err != nil {
		return nil, err
	}
	resolved, err := resolver.New(c.root).ResolveDocument()
	if err != nil {
		return nil, err
	}
	return fromRoot(resolved), nil
}

// ExportYAML renders the document as YAML text.
func (c *Config) ExportYAML() ([]byte, error) {
	return yamldoc.MarshalYAML(c.root)
}
