package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "artifact.json")

	require.NoError(t, WriteFileAtomic(path, []byte(`{"a":1}`), 0644))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	// Overwrite replaces the whole content.
	require.NoError(t, WriteFileAtomic(path, []byte(`{}`), 0644))
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(got))

	// No temp files are left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFileAtomic_EmptyPath(t *testing.T) {
	err := WriteFileAtomic("  ", []byte("x"), 0644)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}
