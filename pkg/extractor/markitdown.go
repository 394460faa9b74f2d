package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/liliang-cn/docingest/pkg/ingestdomain"
	"github.com/liliang-cn/docingest/pkg/ingesterr"
)

// MarkItDownExtractor converts Office and other non-PDF document formats
// to markdown via an HTTP sidecar running Microsoft's MarkItDown
// converter. MarkItDown's own interface is a Python library with no Go
// binding in this dependency pack, so it is reached as an external HTTP
// collaborator, consistent with this codebase's pattern of a plain
// net/http client for any backend lacking a resolvable Go SDK.
type MarkItDownExtractor struct {
	endpoint string
	client   *http.Client
}

// NewMarkItDownExtractor returns a ready-to-use MarkItDownExtractor.
func NewMarkItDownExtractor(endpoint string) (*MarkItDownExtractor, error) {
	if endpoint == "" {
		return nil, ingesterr.New(ingesterr.ConfigInvalid, "extractor", "new", "markitdown endpoint is required", nil)
	}
	return &MarkItDownExtractor{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: 120 * time.Second},
	}, nil
}

type markItDownResponse struct {
	Markdown string `json:"markdown"`
}

// Extract uploads data as a multipart file and returns MarkItDown's
// converted markdown as a single page; MarkItDown does not expose
// per-page boundaries for most formats it supports.
func (e *MarkItDownExtractor) Extract(ctx context.Context, filename string, data []byte) ([]ingestdomain.ExtractedPage, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, ingesterr.WrapWithContext(err, ingesterr.ExtractionFailed, "extractor", "extract", "failed to build markitdown multipart body")
	}
	if _, err := io.Copy(part, bytes.NewReader(data)); err != nil {
		return nil, ingesterr.WrapWithContext(err, ingesterr.ExtractionFailed, "extractor", "extract", "failed to write markitdown multipart body")
	}
	if err := writer.Close(); err != nil {
		return nil, ingesterr.WrapWithContext(err, ingesterr.ExtractionFailed, "extractor", "extract", "failed to close markitdown multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/convert", &body)
	if err != nil {
		return nil, ingesterr.WrapWithContext(err, ingesterr.ExtractionFailed, "extractor", "extract", "failed to build markitdown request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, ingesterr.WrapWithContext(err, ingesterr.TransientNetwork, "extractor", "extract", "markitdown request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ingesterr.New(ingesterr.ExtractionFailed, "extractor", "extract",
			fmt.Sprintf("markitdown returned status %d for %s", resp.StatusCode, filename), nil)
	}

	var out markItDownResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, ingesterr.WrapWithContext(err, ingesterr.ExtractionFailed, "extractor", "extract", "failed to decode markitdown response")
	}

	return []ingestdomain.ExtractedPage{{PageNum: 1, Text: out.Markdown}}, nil
}

// SupportsFormat reports true for the Office document family.
func (e *MarkItDownExtractor) SupportsFormat(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".docx", ".xlsx", ".pptx", ".doc", ".xls", ".ppt":
		return true
	default:
		return false
	}
}
