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

func TestAzureDIExtractor_Extract(t *testing.T) {
	var opLocation string
	mux := http.NewServeMux()
	mux.HandleFunc("/documentintelligence/documentModels/prebuilt-layout:analyze", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		w.Header().Set("Operation-Location", opLocation)
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/poll", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "succeeded",
			"analyzeResult": map[string]any{
				"pages": []map[string]any{
					{"pageNumber": 1, "lines": []map[string]any{{"content": "Hello world"}}},
				},
				"tables": []map[string]any{},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	opLocation = srv.URL + "/poll"

	e, err := NewAzureDIExtractor(srv.URL, "test-key")
	require.NoError(t, err)

	pages, err := e.Extract(context.Background(), "report.pdf", []byte("fake pdf bytes"))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].PageNum)
	assert.Equal(t, "Hello world", pages[0].Text)
}

func TestNewAzureDIExtractor_RequiresCredentials(t *testing.T) {
	_, err := NewAzureDIExtractor("", "")
	assert.Error(t, err)
}

func TestAzureDIExtractor_SupportsFormat(t *testing.T) {
	e, err := NewAzureDIExtractor("http://example.invalid", "key")
	require.NoError(t, err)
	assert.True(t, e.SupportsFormat("report.pdf"))
	assert.True(t, e.SupportsFormat("report.docx"))
	assert.False(t, e.SupportsFormat("report.png"))
}
