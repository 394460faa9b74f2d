package mediadescriber

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/docingest/pkg/ingestdomain"
)

func TestVisionDescriber_Describe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]any{"role": "assistant", "content": "A bar chart showing quarterly revenue."}, "finish_reason": "stop"},
			},
		})
	}))
	defer srv.Close()

	d, err := NewVisionDescriber(VisionConfig{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	images := []*ingestdomain.ExtractedImage{
		{FigureID: "fig1", ImageBytes: []byte("fake-png-bytes")},
	}
	err = d.Describe(context.Background(), images, "Quarterly revenue chart for fiscal year.")
	require.NoError(t, err)
	assert.Equal(t, "A bar chart showing quarterly revenue.", images[0].Description)
}

func TestVisionDescriber_SkipsImagesWithoutBytes(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []map[string]any{}})
	}))
	defer srv.Close()

	d, err := NewVisionDescriber(VisionConfig{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	images := []*ingestdomain.ExtractedImage{{FigureID: "fig1"}}
	err = d.Describe(context.Background(), images, "")
	require.NoError(t, err)
	assert.False(t, called)
	assert.Empty(t, images[0].Description)
}

func TestNewVisionDescriber_RequiresAPIKey(t *testing.T) {
	_, err := NewVisionDescriber(VisionConfig{})
	assert.Error(t, err)
}

func TestDisabledDescriber_IsNoop(t *testing.T) {
	d := NewDisabledDescriber()
	images := []*ingestdomain.ExtractedImage{{FigureID: "fig1", ImageBytes: []byte("x")}}
	err := d.Describe(context.Background(), images, "context")
	require.NoError(t, err)
	assert.Empty(t, images[0].Description)
}
