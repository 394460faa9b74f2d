package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/liliang-cn/docingest/pkg/artifactstore"
	"github.com/liliang-cn/docingest/pkg/embeddings"
	"github.com/liliang-cn/docingest/pkg/extractor"
	"github.com/liliang-cn/docingest/pkg/ingestconfig"
	"github.com/liliang-cn/docingest/pkg/ingesterr"
	"github.com/liliang-cn/docingest/pkg/inputsource"
	"github.com/liliang-cn/docingest/pkg/layoutchunker"
	"github.com/liliang-cn/docingest/pkg/mediadescriber"
	"github.com/liliang-cn/docingest/pkg/tablerenderer"
	"github.com/liliang-cn/docingest/pkg/tokencounter"
	"github.com/liliang-cn/docingest/pkg/vectorstore"
)

// New constructs an Orchestrator from cfg, resolving every collaborator
// through its package factory. Every credential and shape error surfaces
// here, before Run() reads a single document, per §9's "construct up
// front" design note.
func New(ctx context.Context, cfg *ingestconfig.Config, logger *slog.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	in, err := inputsource.New(ctx, cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("pipeline: build input source: %w", err)
	}
	artifacts, err := artifactstore.New(ctx, cfg.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("pipeline: build artifact store: %w", err)
	}
	extr, err := extractor.New(cfg.Extraction)
	if err != nil {
		return nil, fmt.Errorf("pipeline: build extractor: %w", err)
	}
	media, err := mediadescriber.New(cfg.Media)
	if err != nil {
		return nil, fmt.Errorf("pipeline: build media describer: %w", err)
	}
	table := tablerenderer.New(cfg.Table)

	embedder, err := embeddings.New(cfg.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("pipeline: build embeddings provider: %w", err)
	}

	store, err := vectorstore.New(cfg.VectorStore, embedder.Dimensions(), cfg.Embeddings.IntegratedVectorization)
	if err != nil {
		return nil, fmt.Errorf("pipeline: build vector store: %w", err)
	}

	integrated := cfg.Embeddings.IntegratedVectorization && store.SupportsIntegratedVectorization()
	if !integrated && embedder.Dimensions() != store.Dimensions() {
		return nil, ingesterr.New(ingesterr.DimensionMismatch, "pipeline", "new",
			fmt.Sprintf("embeddings provider reports %d dimensions but vector store expects %d", embedder.Dimensions(), store.Dimensions()), nil)
	}

	maxSeqLength := embedder.MaxSeqLength()
	if maxSeqLength <= 0 {
		maxSeqLength = 8191
	}
	chunker := layoutchunker.New(tokencounter.New(), embedder.ModelName(), maxSeqLength, layoutchunker.Config{
		TargetTokens:     cfg.Chunking.TargetTokens,
		OverlapPercent:   cfg.Chunking.OverlapPercent,
		CrossPageOverlap: cfg.Chunking.CrossPageOverlap,
		MaxChars:         cfg.Chunking.MaxChars,
	})

	return &Orchestrator{
		cfg:            cfg,
		logger:         logger,
		input:          in,
		artifacts:      artifacts,
		extractor:      extr,
		tableRenderer:  table,
		mediaDescriber: media,
		chunker:        chunker,
		embeddings:     embedder,
		vectorStore:    store,
		pageSplitter:   extractor.NewPagePdfSplitter(),
		integrated:     integrated,
		semaphores:     newSemaphores(cfg.Performance),
	}, nil
}
