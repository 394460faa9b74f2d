package extractor

import (
	"context"

	"github.com/liliang-cn/docingest/pkg/ingestdomain"
	"github.com/liliang-cn/docingest/pkg/ingesterr"
)

// HybridExtractor dispatches to the first delegate whose SupportsFormat
// accepts filename, trying each delegate in the order given.
type HybridExtractor struct {
	delegates []ingestdomain.Extractor
}

// NewHybridExtractor returns a HybridExtractor trying delegates in order.
func NewHybridExtractor(delegates ...ingestdomain.Extractor) *HybridExtractor {
	return &HybridExtractor{delegates: delegates}
}

// Extract dispatches to the first supporting delegate.
func (e *HybridExtractor) Extract(ctx context.Context, filename string, data []byte) ([]ingestdomain.ExtractedPage, error) {
	for _, d := range e.delegates {
		if d.SupportsFormat(filename) {
			return d.Extract(ctx, filename, data)
		}
	}
	return nil, ingesterr.New(ingesterr.UnsupportedFormat, "extractor", "extract", "no delegate supports "+filename, nil)
}

// SupportsFormat reports true if any delegate supports filename.
func (e *HybridExtractor) SupportsFormat(filename string) bool {
	for _, d := range e.delegates {
		if d.SupportsFormat(filename) {
			return true
		}
	}
	return false
}
