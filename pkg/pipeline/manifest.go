package pipeline

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/liliang-cn/docingest/pkg/ingestdomain"
)

// manifest summarizes one document's ingestion for the per-document
// artifact at {stem}/manifest.json.
type manifest struct {
	ManifestID   string                     `json:"manifest_id"`
	Document     ingestdomain.DocumentMetadata `json:"document"`
	PageCount    int                        `json:"page_count"`
	TableCount   int                        `json:"table_count"`
	FigureCount  int                        `json:"figure_count"`
	ChunkCount   int                        `json:"chunk_count"`
	Warnings     []string                   `json:"warnings,omitempty"`
	ProcessedAt  string                     `json:"processed_at"`
}

func buildManifest(doc ingestdomain.DocumentMetadata, pages []ingestdomain.ExtractedPage, chunkCount int, warnings []string) manifest {
	tableCount, figureCount := 0, 0
	for _, p := range pages {
		tableCount += len(p.Tables)
		figureCount += len(p.Images)
	}
	return manifest{
		ManifestID:  uuid.NewString(),
		Document:    doc,
		PageCount:   len(pages),
		TableCount:  tableCount,
		FigureCount: figureCount,
		ChunkCount:  chunkCount,
		Warnings:    warnings,
		ProcessedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func (m manifest) marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
