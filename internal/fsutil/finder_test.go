package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtensions(t *testing.T) {
	t.Parallel()

	t.Run("finds matching files recursively in lexical order", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
		for _, name := range []string{"b.yaml", "a.yml", "notes.txt", "nested/c.yaml"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x: 1\n"), 0600))
		}

		files, err := FindFilesByExtensions(dir, ".yaml", ".yml")
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "a.yml"),
			filepath.Join(dir, "b.yaml"),
			filepath.Join(dir, "nested", "c.yaml"),
		}, files)
	})

	t.Run("empty directory yields no files", func(t *testing.T) {
		t.Parallel()
		files, err := FindFilesByExtensions(t.TempDir(), ".yaml")
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("missing root errors", func(t *testing.T) {
		t.Parallel()
		_, err := FindFilesByExtensions(filepath.Join(t.TempDir(), "absent"), ".yaml")
		assert.Error(t, err)
	})

	t.Run("panics without extensions", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() {
			_, _ = FindFilesByExtensions(t.TempDir())
		})
	})
}
