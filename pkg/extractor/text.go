// Package extractor implements ingestdomain.Extractor for the formats this
// pipeline reads: plain text/markdown, and PDF via dslipak/pdf.
package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/liliang-cn/docingest/pkg/ingestdomain"
)

// TextExtractor treats the whole input as a single page of plain text.
// It is also the fallback extractor.mode=text path for any format the
// pipeline does not have a binary-format adapter for.
type TextExtractor struct{}

// NewTextExtractor returns a ready-to-use TextExtractor.
func NewTextExtractor() *TextExtractor { return &TextExtractor{} }

// Extract returns the file contents as a single-page document.
func (e *TextExtractor) Extract(ctx context.Context, filename string, data []byte) ([]ingestdomain.ExtractedPage, error) {
	return []ingestdomain.ExtractedPage{{
		PageNum: 1,
		Text:    strings.ReplaceAll(string(data), "\r\n", "\n"),
	}}, nil
}

// SupportsFormat reports true for .txt, .md and .markdown files.
func (e *TextExtractor) SupportsFormat(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".markdown":
		return true
	default:
		return false
	}
}
