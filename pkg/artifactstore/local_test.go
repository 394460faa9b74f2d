package artifactstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_UploadListDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	ctx := context.Background()

	url, err := store.Upload(ctx, DocumentsPath("report.pdf"), []byte("hello"))
	require.NoError(t, err)
	assert.Contains(t, url, "file://")

	_, err = store.Upload(ctx, PagePath("report", 1, "txt"), []byte("page one"))
	require.NoError(t, err)
	_, err = store.Upload(ctx, FigurePath("report", "f1", "png"), []byte{0x89, 0x50})
	require.NoError(t, err)

	paths, err := store.List(ctx, "report/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"report/page-0001.txt", "report/figure_f1.png"}, paths)

	require.NoError(t, store.Delete(ctx, PagePath("report", 1, "txt")))
	paths, err = store.List(ctx, "report/")
	require.NoError(t, err)
	assert.Equal(t, []string{"report/figure_f1.png"}, paths)

	// Deleting a missing path is not an error, matching S3 delete semantics.
	assert.NoError(t, store.Delete(ctx, PagePath("report", 1, "txt")))
}

func TestLocalStore_ListMissingPrefixReturnsEmpty(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	paths, err := store.List(context.Background(), "never-written/")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestLocalStore_NewRejectsEmptyDir(t *testing.T) {
	_, err := NewLocalStore("")
	assert.Error(t, err)
}

func TestStemAndPaths(t *testing.T) {
	assert.Equal(t, "report", Stem("report.pdf"))
	assert.Equal(t, "report", Stem(filepath.Join("a", "b", "report.pdf")))
	assert.Equal(t, "documents/report.pdf", DocumentsPath("report.pdf"))
	assert.Equal(t, "report/page-0003.txt", PagePath("report", 3, "txt"))
	assert.Equal(t, "report/figure_f9.png", FigurePath("report", "f9", "png"))
	assert.Equal(t, "report/manifest.json", ManifestPath("report"))
	assert.Equal(t, "status/run-abc.json", StatusPath("abc"))
}

func TestLocalStore_UploadCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), "a/b/c/file.txt", []byte("x"))
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "a", "b", "c", "file.txt"))
	assert.NoError(t, statErr)
}
