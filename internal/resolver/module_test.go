package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/cnnpruning/mayo/internal/dotpath"
)

// moduleDoc declares a reusable block module and two usages of it with
// different kwarg overrides, mirroring how depthwise-separable stacks are
// written.
const moduleDoc = `
dataset:
    task:
        num_classes: 10
model:
    name: net
    layers:
        _block: &block
            type: module
            kwargs: {stride: 1, num_outputs: ~}
            layers:
                dw: {type: depthwise, stride: ^(stride), label: "s^(stride)"}
                pw: {type: convolution, num_outputs: ^(num_outputs), stride: 1}
            graph: {from: input, with: [dw, pw], to: output}
        b1: {<<: *block, num_outputs: 64}
        b2: {<<: *block, stride: 2, num_outputs: 128}
`

func expandAt(t *testing.T, r *Resolver, doc cty.Value, path string) cty.Value {
	t.Helper()
	params, err := dotpath.Walk(doc, path)
	require.NoError(t, err)
	expanded, err := r.ExpandModule(params)
	require.NoError(t, err)
	return expanded
}

func walkTo(t *testing.T, v cty.Value, path string) cty.Value {
	t.Helper()
	got, err := dotpath.Walk(v, path)
	require.NoError(t, err)
	return got
}

func TestExpandModule_Bindings(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, moduleDoc)
	r := New(doc)
	expanded := expandAt(t, r, doc, "model.layers.b2")

	// The override wins over the kwarg default and substitutes typed.
	v := walkTo(t, expanded, "layers.dw.stride")
	assert.True(t, v.RawEquals(cty.NumberIntVal(2)), "got %#v", v)

	v = walkTo(t, expanded, "layers.pw.num_outputs")
	assert.True(t, v.RawEquals(cty.NumberIntVal(128)))

	// Markers embedded in longer strings substitute as text.
	v = walkTo(t, expanded, "layers.dw.label")
	assert.True(t, v.RawEquals(cty.StringVal("s2")))

	// Keys without markers pass through untouched.
	v = walkTo(t, expanded, "layers.pw.stride")
	assert.True(t, v.RawEquals(cty.NumberIntVal(1)))
}

func TestExpandModule_DefaultApplies(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, moduleDoc)
	expanded := expandAt(t, New(doc), doc, "model.layers.b1")

	v := walkTo(t, expanded, "layers.dw.stride")
	assert.True(t, v.RawEquals(cty.NumberIntVal(1)))
}

func TestExpandModule_InstantiationsAreIndependent(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, moduleDoc)
	r := New(doc)

	b1 := expandAt(t, r, doc, "model.layers.b1")
	b2 := expandAt(t, r, doc, "model.layers.b2")

	v1 := walkTo(t, b1, "layers.dw.stride")
	v2 := walkTo(t, b2, "layers.dw.stride")
	assert.True(t, v1.RawEquals(cty.NumberIntVal(1)))
	assert.True(t, v2.RawEquals(cty.NumberIntVal(2)))

	// The shared template itself is untouched.
	tmpl := walkTo(t, doc, "model.layers._block.layers.dw.stride")
	assert.True(t, tmpl.RawEquals(cty.StringVal("^(stride)")))
}

func TestExpandModule_NullBindingFailsOnUse(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `
model:
    layers:
        _block: &block
            type: module
            kwargs: {num_outputs: ~}
            layers:
                pw: {type: convolution, num_outputs: ^(num_outputs)}
            graph: {from: input, with: [pw], to: output}
        used: {<<: *block}
`)
	params, err := dotpath.Walk(doc, "model.layers.used")
	require.NoError(t, err)

	_, err = New(doc).ExpandModule(params)
	var unresolved *UnresolvedMarkerError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "^(num_outputs)", unresolved.Marker)
}

func TestExpandModule_UndeclaredKwarg(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `
model:
    layers:
        bad:
            type: module
            kwargs: {stride: 1}
            layers:
                c: {type: convolution, pad: ^(padding)}
            graph: {from: input, with: [c], to: output}
`)
	params, err := dotpath.Walk(doc, "model.layers.bad")
	require.NoError(t, err)

	_, err = New(doc).ExpandModule(params)
	var unresolved *UnresolvedMarkerError
	require.ErrorAs(t, err, &unresolved)
	assert.Contains(t, unresolved.Reason, "not a declared module kwarg")
}

func TestExpandModule_SelfReferentialBinding(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `
model:
    layers:
        bad:
            type: module
            kwargs: {depth: "^(depth)"}
            layers:
                c: {type: convolution, depth: ^(depth)}
            graph: {from: input, with: [c], to: output}
`)
	params, err := dotpath.Walk(doc, "model.layers.bad")
	require.NoError(t, err)

	_, err = New(doc).ExpandModule(params)
	var cyclic *CyclicReferenceError
	assert.ErrorAs(t, err, &cyclic)
}

func TestExpandModule_GlobalMarkersResolveAfterSubstitution(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `
dataset:
    task:
        num_classes: 10
model:
    layers:
        head:
            type: module
            kwargs: {scale: 2}
            layers:
                fc:
                    type: fully_connected
                    num_outputs: !arith "$(dataset.task.num_classes) * ^(scale)"
            graph: {from: input, with: [fc], to: output}
`)
	params, err := dotpath.Walk(doc, "model.layers.head")
	require.NoError(t, err)

	expanded, err := New(doc).ExpandModule(params)
	require.NoError(t, err)

	v := walkTo(t, expanded, "layers.fc.num_outputs")
	assert.True(t, v.RawEquals(cty.NumberIntVal(20)), "got %#v", v)
}

func TestExpandModule_NestedModuleBoundary(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `
model:
    layers:
        outer:
            type: module
            kwargs: {stride: 2}
            layers:
                inner:
                    type: module
                    kwargs: {stride: ~}
                    stride: ^(stride)
                    layers:
                        c: {type: convolution, stride: ^(stride)}
                    graph: {from: input, with: [c], to: output}
            graph: {from: input, with: [inner], to: output}
`)
	params, err := dotpath.Walk(doc, "model.layers.outer")
	require.NoError(t, err)

	expanded, err := New(doc).ExpandModule(params)
	require.NoError(t, err)

	// The value the outer module passes down is substituted.
	v := walkTo(t, expanded, "layers.inner.stride")
	assert.True(t, v.RawEquals(cty.NumberIntVal(2)), "got %#v", v)

	// The inner module's own body waits for its own expansion.
	v = walkTo(t, expanded, "layers.inner.layers.c.stride")
	assert.True(t, v.RawEquals(cty.StringVal("^(stride)")))
}

func TestExpandModule_RejectsNonMapping(t *testing.T) {
	t.Parallel()

	_, err := New(cty.EmptyObjectVal).ExpandModule(cty.StringVal("oops"))
	assert.Error(t, err)
}
