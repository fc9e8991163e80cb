package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"b.jpg", "a.JPG", "c.Jpg", "d.png", "e.jpeg"} {
		touch(t, dir, n)
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755))

	paths, err := ListFiles(dir, SuffixFold(".jpg"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.JPG"),
		filepath.Join(dir, "b.jpg"),
		filepath.Join(dir, "c.Jpg"),
	}, paths)

	paths, err = ListFiles(dir, Suffix("jpg", "JPG"))
	require.NoError(t, err)
	assert.Len(t, paths, 2)

	paths, err = ListFiles(dir, ExtensionFold(".jpeg", ".png"))
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestListFilesMissingDir(t *testing.T) {
	_, err := ListFiles(filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	assert.True(t, Exists(dir))
	require.NoError(t, EnsureDir(dir))
}
