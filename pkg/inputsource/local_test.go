package inputsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLocalSource_ListGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.pdf"), "a")
	writeFile(t, filepath.Join(dir, "b.pdf"), "b")
	writeFile(t, filepath.Join(dir, "c.txt"), "c")

	src := NewLocalSource(filepath.Join(dir, "*.pdf"))
	files, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.pdf"), filepath.Join(dir, "b.pdf")}, files)
}

func TestLocalSource_ListRecursesMatchedDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docs", "nested", "report.pdf"), "report")
	writeFile(t, filepath.Join(dir, "docs", "summary.pdf"), "summary")

	src := NewLocalSource(filepath.Join(dir, "docs"))
	files, err := src.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "docs", "nested", "report.pdf"),
		filepath.Join(dir, "docs", "summary.pdf"),
	}, files)
}

func TestLocalSource_Read(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	writeFile(t, path, "report bytes")

	src := NewLocalSource(path)
	filename, data, sourceURL, err := src.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", filename)
	assert.Equal(t, []byte("report bytes"), data)
	assert.Contains(t, sourceURL, "file://")
}

func TestLocalSource_ReadMissingFile(t *testing.T) {
	src := NewLocalSource("*.pdf")
	_, _, _, err := src.Read(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestLocalSource_ListInvalidGlobPattern(t *testing.T) {
	src := NewLocalSource("[")
	_, err := src.List(context.Background())
	assert.Error(t, err)
}
