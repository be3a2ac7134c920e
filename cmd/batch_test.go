package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindDocuments(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(nested, 0755))

	for _, name := range []string{"b.json", "a.PDF", "notes.txt", filepath.Join("nested", "c.png")} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	single := filepath.Join(dir, "notes.txt")

	files, err := findDocuments([]string{dir, single, filepath.Join(dir, "b.json")})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.PDF"),
		filepath.Join(dir, "b.json"),
		filepath.Join(nested, "c.png"),
		single,
	}, files)

	_, err = findDocuments([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}
