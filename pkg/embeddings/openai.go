// Package embeddings implements ingestdomain.EmbeddingsProvider for the four
// wired backends (OpenAI, Ollama, LM Studio, Gemini).
package embeddings

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIConfig configures the OpenAI embeddings backend.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Dimensions   int
	MaxSeqLength int
}

// OpenAIProvider implements ingestdomain.EmbeddingsProvider against the
// OpenAI embeddings API (or any OpenAI-compatible base URL).
type OpenAIProvider struct {
	client openai.Client
	cfg    OpenAIConfig
}

// NewOpenAIProvider constructs an OpenAIProvider from cfg.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embeddings: openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 1536
	}
	if cfg.MaxSeqLength == 0 {
		cfg.MaxSeqLength = 8191
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}, nil
}

// Embed generates an embedding for a single text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("embeddings: empty text")
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.cfg.Model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("embeddings: openai request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embeddings: openai returned no embedding data")
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// EmbedBatch generates embeddings for a batch of texts. The OpenAI Go SDK's
// string-input form is the only shape this codebase has confirmed against a
// real call site, so batches are issued as sequential single-text requests
// rather than risking an unverified array-input field name.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embeddings: openai batch item %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the embedding vector width.
func (p *OpenAIProvider) Dimensions() int { return p.cfg.Dimensions }

// ModelName returns the configured model name.
func (p *OpenAIProvider) ModelName() string { return p.cfg.Model }

// MaxSeqLength returns the model's maximum input sequence length in tokens.
func (p *OpenAIProvider) MaxSeqLength() int { return p.cfg.MaxSeqLength }
