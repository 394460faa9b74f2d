package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiProvider_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, ":embedContent")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		resp := geminiEmbedContentResponse{}
		resp.Embedding.Values = []float32{0.9, 0.8, 0.7}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p, err := NewGeminiProvider(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "text-embedding-004"})
	require.NoError(t, err)

	vec, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.9, 0.8, 0.7}, vec)
}

func TestNewGeminiProvider_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiProvider(GeminiConfig{})
	assert.Error(t, err)
}
