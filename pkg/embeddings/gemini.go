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

// GeminiConfig configures the Gemini embeddings backend.
type GeminiConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Dimensions   int
	MaxSeqLength int
	Timeout      time.Duration
}

// GeminiProvider implements ingestdomain.EmbeddingsProvider against the
// Gemini embedContent REST endpoint, following the same key-in-query-string
// call shape this codebase's Gemini LLM provider uses for generateContent.
type GeminiProvider struct {
	httpClient *http.Client
	cfg        GeminiConfig
}

// NewGeminiProvider constructs a GeminiProvider from cfg.
func NewGeminiProvider(cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embeddings: gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-004"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 768
	}
	if cfg.MaxSeqLength == 0 {
		cfg.MaxSeqLength = 2048
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &GeminiProvider{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
	}, nil
}

type geminiEmbedContentRequest struct {
	Model   string `json:"model"`
	Content struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
}

type geminiEmbedContentResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// Embed generates an embedding for a single text.
func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("embeddings: empty text")
	}

	req := geminiEmbedContentRequest{Model: "models/" + p.cfg.Model}
	req.Content.Parts = []struct {
		Text string `json:"text"`
	}{{Text: text}}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings: gemini marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:embedContent?key=%s", p.cfg.BaseURL, p.cfg.Model, p.cfg.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("embeddings: gemini build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embeddings: gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embeddings: gemini read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings: gemini api error %d: %s", resp.StatusCode, string(body))
	}

	var parsed geminiEmbedContentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("embeddings: gemini unmarshal response: %w", err)
	}
	if len(parsed.Embedding.Values) == 0 {
		return nil, fmt.Errorf("embeddings: gemini returned an empty embedding")
	}
	return parsed.Embedding.Values, nil
}

// EmbedBatch generates embeddings for a batch of texts as sequential
// requests against embedContent.
func (p *GeminiProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embeddings: gemini batch item %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the embedding vector width.
func (p *GeminiProvider) Dimensions() int { return p.cfg.Dimensions }

// ModelName returns the configured model name.
func (p *GeminiProvider) ModelName() string { return p.cfg.Model }

// MaxSeqLength returns the model's maximum input sequence length in tokens.
func (p *GeminiProvider) MaxSeqLength() int { return p.cfg.MaxSeqLength }
