package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// LMStudioConfig configures the LM Studio embeddings backend.
type LMStudioConfig struct {
	BaseURL      string
	Model        string
	Dimensions   int
	MaxSeqLength int
	Timeout      time.Duration
}

// LMStudioProvider implements ingestdomain.EmbeddingsProvider against a
// local LM Studio server's OpenAI-compatible /v1/embeddings endpoint. Like
// OllamaProvider, this bypasses this codebase's private LM Studio client
// package (unresolvable outside its origin module) in favor of the
// documented HTTP surface.
type LMStudioProvider struct {
	httpClient *http.Client
	cfg        LMStudioConfig
}

// NewLMStudioProvider constructs an LMStudioProvider from cfg.
func NewLMStudioProvider(cfg LMStudioConfig) (*LMStudioProvider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:1234"
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("embeddings: lmstudio model is required")
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 768
	}
	if cfg.MaxSeqLength == 0 {
		cfg.MaxSeqLength = 2048
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &LMStudioProvider{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
	}, nil
}

type lmstudioEmbeddingsRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type lmstudioEmbeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed generates an embedding for a single text.
func (p *LMStudioProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("embeddings: empty text")
	}

	reqBody := lmstudioEmbeddingsRequest{Model: p.cfg.Model, Input: text}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("embeddings: lmstudio marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/embeddings", p.cfg.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("embeddings: lmstudio build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embeddings: lmstudio request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embeddings: lmstudio read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings: lmstudio api error %d: %s", resp.StatusCode, string(body))
	}

	var parsed lmstudioEmbeddingsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("embeddings: lmstudio unmarshal response: %w", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embeddings: lmstudio returned no embedding data")
	}
	return parsed.Data[0].Embedding, nil
}

// EmbedBatch generates embeddings for a batch of texts as sequential
// requests.
func (p *LMStudioProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embeddings: lmstudio batch item %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the embedding vector width.
func (p *LMStudioProvider) Dimensions() int { return p.cfg.Dimensions }

// ModelName returns the configured model name.
func (p *LMStudioProvider) ModelName() string { return p.cfg.Model }

// MaxSeqLength returns the model's maximum input sequence length in tokens.
func (p *LMStudioProvider) MaxSeqLength() int { return p.cfg.MaxSeqLength }
