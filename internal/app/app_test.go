package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelDoc = `
dataset:
    task:
        num_classes: 10
model:
    name: lenet
    layers:
        conv0: {type: convolution, kernel_size: 5, num_outputs: 20}
        pool0: {type: max_pool, kernel_size: 2}
        fc: {type: fully_connected, num_outputs: $(dataset.task.num_classes)}
    graph: {from: input, with: [conv0, pool0, fc], to: output}
`

func writeDoc(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0600))
	return path
}

// runApp executes the app with the given config and returns stdout.
func runApp(t *testing.T, cfg Config) (string, error) {
	t.Helper()
	appConfig, err := NewConfig(cfg)
	require.NoError(t, err)

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	a := NewApp(out, errOut, appConfig)
	runErr := a.Run(context.Background())
	return out.String(), runErr
}

func TestRun_Validate(t *testing.T) {
	t.Parallel()

	path := writeDoc(t, t.TempDir(), "lenet.yaml", modelDoc)
	out, err := runApp(t, Config{Paths: []string{path}, Actions: []string{ActionValidate}})
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
}

func TestRun_Export(t *testing.T) {
	t.Parallel()

	path := writeDoc(t, t.TempDir(), "lenet.yaml", modelDoc)
	out, err := runApp(t, Config{Paths: []string{path}, Actions: []string{ActionExport}})
	require.NoError(t, err)

	assert.Contains(t, out, "---\n")
	assert.Contains(t, out, "name: lenet")
	// The marker is resolved in the exported document.
	assert.Contains(t, out, "num_outputs: 10")
	assert.NotContains(t, out, "$(")
}

func TestRun_Info(t *testing.T) {
	t.Parallel()

	path := writeDoc(t, t.TempDir(), "lenet.yaml", modelDoc)
	out, err := runApp(t, Config{Paths: []string{path}, Actions: []string{ActionInfo}})
	require.NoError(t, err)

	assert.Contains(t, out, "model: lenet")
	assert.Contains(t, out, "lenet/conv0")
	assert.Contains(t, out, "lenet/pool0")
	assert.Contains(t, out, "lenet/fc")
	assert.Contains(t, out, "fully_connected")
}

func TestRun_Overrides(t *testing.T) {
	t.Parallel()

	path := writeDoc(t, t.TempDir(), "lenet.yaml", modelDoc)
	out, err := runApp(t, Config{
		Paths:     []string{path},
		Overrides: []Override{{Key: "dataset.task.num_classes", Value: "100"}},
		Actions:   []string{ActionExport},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "num_outputs: 100")
}

func TestRun_MergesDocumentsInOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := writeDoc(t, dir, "base.yaml", modelDoc)
	patch := writeDoc(t, dir, "patch.yaml", "dataset:\n    task:\n        num_classes: 42\n")

	out, err := runApp(t, Config{Paths: []string{base, patch}, Actions: []string{ActionExport}})
	require.NoError(t, err)
	assert.Contains(t, out, "num_outputs: 42")
}

func TestRun_DirectoryOfDocuments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// Lexical walk order: a.yaml merges before b.yaml.
	writeDoc(t, dir, "a.yaml", modelDoc)
	writeDoc(t, dir, "b.yaml", "model:\n    name: lenet5\n")
	writeDoc(t, dir, "notes.txt", "ignored\n")

	out, err := runApp(t, Config{Paths: []string{dir}, Actions: []string{ActionInfo}})
	require.NoError(t, err)
	assert.Contains(t, out, "model: lenet5")
}

func TestRun_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing path", func(t *testing.T) {
		t.Parallel()
		_, err := runApp(t, Config{Paths: []string{filepath.Join(t.TempDir(), "nope.yaml")}})
		assert.ErrorContains(t, err, "error accessing path")
	})

	t.Run("non-yaml file", func(t *testing.T) {
		t.Parallel()
		path := writeDoc(t, t.TempDir(), "model.json", "{}")
		_, err := runApp(t, Config{Paths: []string{path}})
		assert.ErrorContains(t, err, "is not a YAML document")
	})

	t.Run("structurally invalid document", func(t *testing.T) {
		t.Parallel()
		path := writeDoc(t, t.TempDir(), "bad.yaml", "dataset: {task: {num_classes: 10}}\n")
		_, err := runApp(t, Config{Paths: []string{path}})
		assert.ErrorContains(t, err, "failed to resolve configuration")
	})

	t.Run("graph validation failure", func(t *testing.T) {
		t.Parallel()
		path := writeDoc(t, t.TempDir(), "bad.yaml", `
model:
    name: x
    layers:
        conv0: {type: convolution}
    graph: {from: input, with: [poool0], to: output}
`)
		_, err := runApp(t, Config{Paths: []string{path}, Actions: []string{ActionValidate}})
		assert.ErrorContains(t, err, `"poool0"`)
	})
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	t.Run("requires a path", func(t *testing.T) {
		t.Parallel()
		_, err := NewConfig(Config{})
		assert.ErrorContains(t, err, "at least one YAML document path")
	})

	t.Run("rejects unknown actions", func(t *testing.T) {
		t.Parallel()
		_, err := NewConfig(Config{Paths: []string{"m.yaml"}, Actions: []string{"explode"}})
		assert.ErrorContains(t, err, `unknown action "explode"`)
	})

	t.Run("defaults to validate", func(t *testing.T) {
		t.Parallel()
		cfg, err := NewConfig(Config{Paths: []string{"m.yaml"}})
		require.NoError(t, err)
		assert.Equal(t, []string{ActionValidate}, cfg.Actions)
	})
}
