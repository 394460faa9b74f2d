package extractor

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dslipak/pdf"

	"github.com/liliang-cn/docingest/pkg/ingestdomain"
	"github.com/liliang-cn/docingest/pkg/ingesterr"
)

// PDFExtractor splits a PDF into one ExtractedPage per page using
// dslipak/pdf's plain-text layer. With extraction.partial_page_tolerance
// on, pages that fail to render their text are skipped rather than
// aborting the whole document; no warning names the skipped pages.
type PDFExtractor struct {
	partialPageTolerance bool
}

// NewPDFExtractor returns a ready-to-use PDFExtractor. When
// partialPageTolerance is false, a single page extraction failure fails
// the whole document instead of being skipped.
func NewPDFExtractor(partialPageTolerance bool) *PDFExtractor {
	return &PDFExtractor{partialPageTolerance: partialPageTolerance}
}

// Extract returns one ExtractedPage per PDF page, 1-indexed to match
// PageMetadata.PageNum elsewhere in the pipeline.
func (e *PDFExtractor) Extract(ctx context.Context, filename string, data []byte) ([]ingestdomain.ExtractedPage, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, ingesterr.WrapWithContext(err, ingesterr.ExtractionFailed, "extractor", "extract",
			fmt.Sprintf("failed to open PDF %s", filename))
	}

	pages := make([]ingestdomain.ExtractedPage, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			if e.partialPageTolerance {
				continue
			}
			return nil, ingesterr.WrapWithContext(err, ingesterr.ExtractionFailed, "extractor", "extract",
				fmt.Sprintf("failed to extract text from page %d of %s", i, filename))
		}

		pages = append(pages, ingestdomain.ExtractedPage{
			PageNum: i,
			Text:    strings.ReplaceAll(text, "\r\n", "\n"),
		})
	}

	return pages, nil
}

// SupportsFormat reports true for .pdf files.
func (e *PDFExtractor) SupportsFormat(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) == ".pdf"
}
