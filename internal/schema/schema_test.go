package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/cnnpruning/mayo/internal/yamldoc"
)

func mustParse(t *testing.T, src string) cty.Value {
	t.Helper()
	v, err := yamldoc.Parse([]byte(src))
	require.NoError(t, err)
	return v
}

func TestValidate_ValidDocument(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `
dataset:
    task:
        num_classes: 10
model:
    name: lenet
    description: a small convolutional model
    layers:
        conv0: {type: convolution, kernel_size: 5}
        fc: {type: fully_connected}
    graph:
        from: input
        with: [conv0, fc]
        to: output
`)
	assert.NoError(t, Validate(doc))
}

func TestValidate_ConnectionList(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `
model:
    name: resnetish
    layers:
        a: {type: convolution}
        b: {type: convolution}
    graph:
        - {from: input, with: [a], to: mid}
        - {from: mid, with: [b], to: output}
`)
	assert.NoError(t, Validate(doc))
}

func TestValidate_ModuleLayers(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `
model:
    name: mobile
    layers:
        block:
            type: module
            kwargs: {stride: 1}
            layers:
                dw: {type: depthwise, stride: ^(stride)}
            graph: {from: input, with: [dw], to: output}
    graph: {from: input, with: [block], to: output}
`)
	assert.NoError(t, Validate(doc))
}

func TestValidate_UnresolvedMarkersPass(t *testing.T) {
	t.Parallel()

	// Validation runs before resolution, so marker strings are fine where
	// the schema does not force another type.
	doc := mustParse(t, `
model:
    name: net-$(dataset.name)
    layers:
        fc: {type: fully_connected, num_outputs: $(dataset.task.num_classes)}
    graph: {from: input, with: [fc], to: output}
`)
	assert.NoError(t, Validate(doc))
}

func TestValidate_Violations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "missing model",
			src:  "dataset: {task: {num_classes: 10}}\n",
			want: "model is required",
		},
		{
			name: "model missing graph",
			src: `
model:
    name: x
    layers:
        a: {type: convolution}
`,
			want: "graph is required",
		},
		{
			name: "layer without type",
			src: `
model:
    name: x
    layers:
        a: {kernel_size: 3}
    graph: {from: input, with: [a], to: output}
`,
			want: "type is required",
		},
		{
			name: "connection without to",
			src: `
model:
    name: x
    layers:
        a: {type: convolution}
    graph: {from: input, with: [a]}
`,
			want: "",
		},
		{
			name: "module layer without a body",
			src: `
model:
    name: x
    layers:
        block: {type: module, kwargs: {stride: 1}}
    graph: {from: input, with: [block], to: output}
`,
			want: "",
		},
		{
			name: "preprocess shape must hold dimensions",
			src: `
dataset:
    preprocess:
        shape: {height: {}, width: 224, channels: 3}
model:
    name: x
    layers:
        a: {type: convolution}
    graph: {from: input, with: [a], to: output}
`,
			want: "",
		},
		{
			name: "name must be a string",
			src: `
model:
    name: 42
    layers:
        a: {type: convolution}
    graph: {from: input, with: [a], to: output}
`,
			want: "",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(mustParse(t, tt.src))
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Fields)
			if tt.want != "" {
				assert.Contains(t, err.Error(), tt.want)
			}
		})
	}
}
