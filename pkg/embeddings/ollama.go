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

// OllamaConfig configures the Ollama embeddings backend.
type OllamaConfig struct {
	BaseURL      string
	Model        string
	Dimensions   int
	MaxSeqLength int
	Timeout      time.Duration
}

// OllamaProvider implements ingestdomain.EmbeddingsProvider against a local
// Ollama server's /api/embeddings endpoint. Ollama's Go client libraries in
// this codebase's wider ecosystem are not resolvable packages, so this talks
// to the documented HTTP API directly, the same way the corpus's Gemini
// provider talks to its REST endpoint instead of a vendored SDK.
type OllamaProvider struct {
	httpClient *http.Client
	cfg        OllamaConfig
}

// NewOllamaProvider constructs an OllamaProvider from cfg.
func NewOllamaProvider(cfg OllamaConfig) (*OllamaProvider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("embeddings: ollama model is required")
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

	return &OllamaProvider{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
	}, nil
}

type ollamaEmbeddingsRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingsResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed generates an embedding for a single text.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("embeddings: empty text")
	}

	reqBody := ollamaEmbeddingsRequest{Model: p.cfg.Model, Prompt: text}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("embeddings: ollama marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/embeddings", p.cfg.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("embeddings: ollama build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embeddings: ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embeddings: ollama read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings: ollama api error %d: %s", resp.StatusCode, string(body))
	}

	var parsed ollamaEmbeddingsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("embeddings: ollama unmarshal response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("embeddings: ollama returned an empty embedding")
	}
	return parsed.Embedding, nil
}

// EmbedBatch generates embeddings for a batch of texts. Ollama's
// /api/embeddings endpoint accepts one prompt per call, so batches run as
// sequential requests.
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embeddings: ollama batch item %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the embedding vector width.
func (p *OllamaProvider) Dimensions() int { return p.cfg.Dimensions }

// ModelName returns the configured model name.
func (p *OllamaProvider) ModelName() string { return p.cfg.Model }

// MaxSeqLength returns the model's maximum input sequence length in tokens.
func (p *OllamaProvider) MaxSeqLength() int { return p.cfg.MaxSeqLength }
