package extractor

import (
	"github.com/liliang-cn/docingest/pkg/ingestconfig"
	"github.com/liliang-cn/docingest/pkg/ingestdomain"
	"github.com/liliang-cn/docingest/pkg/ingesterr"
)

// New builds the Extractor selected by cfg.Mode.
func New(cfg ingestconfig.ExtractionConfig) (ingestdomain.Extractor, error) {
	switch cfg.Mode {
	case "text":
		return NewTextExtractor(), nil
	case "hybrid":
		return NewHybridExtractor(
			NewPDFExtractor(cfg.PartialPageTolerance),
			NewTextExtractor(),
		), nil
	case "azure_di":
		return NewAzureDIExtractor(cfg.AzureDI.Endpoint, cfg.AzureDI.APIKey)
	case "markitdown":
		return NewMarkItDownExtractor(cfg.MarkItDown.Endpoint)
	default:
		return nil, ingesterr.New(ingesterr.ConfigInvalid, "extractor", "new", "unknown extractor mode "+cfg.Mode, nil)
	}
}
