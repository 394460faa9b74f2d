package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkItDownExtractor_Extract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/convert", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(10<<20))
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"markdown": "# Converted\n\nbody text"})
	}))
	defer srv.Close()

	e, err := NewMarkItDownExtractor(srv.URL)
	require.NoError(t, err)

	pages, err := e.Extract(context.Background(), "report.docx", []byte("fake office bytes"))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "# Converted\n\nbody text", pages[0].Text)
}

func TestMarkItDownExtractor_RequiresEndpoint(t *testing.T) {
	_, err := NewMarkItDownExtractor("")
	assert.Error(t, err)
}

func TestMarkItDownExtractor_SupportsFormat(t *testing.T) {
	e, err := NewMarkItDownExtractor("http://example.invalid")
	require.NoError(t, err)
	assert.True(t, e.SupportsFormat("report.docx"))
	assert.False(t, e.SupportsFormat("report.pdf"))
}
