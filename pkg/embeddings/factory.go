package embeddings

import (
	"fmt"

	"github.com/liliang-cn/docingest/pkg/ingestconfig"
	"github.com/liliang-cn/docingest/pkg/ingestdomain"
)

// New builds the EmbeddingsProvider selected by cfg.Provider.
func New(cfg ingestconfig.EmbeddingsConfig) (ingestdomain.EmbeddingsProvider, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Model:        cfg.Model,
			Dimensions:   cfg.Dimensions,
			MaxSeqLength: cfg.MaxSeqLength,
		})
	case "ollama":
		return NewOllamaProvider(OllamaConfig{
			BaseURL:      cfg.BaseURL,
			Model:        cfg.Model,
			Dimensions:   cfg.Dimensions,
			MaxSeqLength: cfg.MaxSeqLength,
			Timeout:      cfg.Timeout,
		})
	case "lmstudio":
		return NewLMStudioProvider(LMStudioConfig{
			BaseURL:      cfg.BaseURL,
			Model:        cfg.Model,
			Dimensions:   cfg.Dimensions,
			MaxSeqLength: cfg.MaxSeqLength,
			Timeout:      cfg.Timeout,
		})
	case "gemini":
		return NewGeminiProvider(GeminiConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Model:        cfg.Model,
			Dimensions:   cfg.Dimensions,
			MaxSeqLength: cfg.MaxSeqLength,
			Timeout:      cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("embeddings: unknown provider %q", cfg.Provider)
	}
}
