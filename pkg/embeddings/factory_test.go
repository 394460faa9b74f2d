package embeddings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/docingest/pkg/ingestconfig"
)

func TestNew_Dispatch(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ingestconfig.EmbeddingsConfig
		wantErr bool
	}{
		{
			name: "openai requires api key",
			cfg:  ingestconfig.EmbeddingsConfig{Provider: "openai"},
			wantErr: true,
		},
		{
			name: "openai with api key",
			cfg:  ingestconfig.EmbeddingsConfig{Provider: "openai", APIKey: "sk-test", Model: "text-embedding-3-small"},
		},
		{
			name: "ollama requires model",
			cfg:  ingestconfig.EmbeddingsConfig{Provider: "ollama"},
			wantErr: true,
		},
		{
			name: "ollama with model",
			cfg:  ingestconfig.EmbeddingsConfig{Provider: "ollama", Model: "nomic-embed-text"},
		},
		{
			name: "lmstudio with model",
			cfg:  ingestconfig.EmbeddingsConfig{Provider: "lmstudio", Model: "nomic-embed-text"},
		},
		{
			name: "gemini requires api key",
			cfg:  ingestconfig.EmbeddingsConfig{Provider: "gemini"},
			wantErr: true,
		},
		{
			name: "gemini with api key",
			cfg:  ingestconfig.EmbeddingsConfig{Provider: "gemini", APIKey: "test-key"},
		},
		{
			name:    "unknown provider",
			cfg:     ingestconfig.EmbeddingsConfig{Provider: "bedrock"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, p)
		})
	}
}
