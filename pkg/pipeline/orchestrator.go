// Package pipeline implements the ingestion Orchestrator: the top-level
// state machine that drives InputSource, ArtifactStore, Extractor,
// TableRenderer, MediaDescriber, Chunker, EmbeddingsProvider, and
// VectorStore under the three-level concurrency hierarchy and the
// document-action/idempotent-replace semantics.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/liliang-cn/docingest/pkg/extractor"
	"github.com/liliang-cn/docingest/pkg/ingestconfig"
	"github.com/liliang-cn/docingest/pkg/ingestdomain"
)

// semaphores holds the three independent counting semaphores sized from
// Config.Performance (§5), plus the capacity-1 vision gate.
type semaphores struct {
	doc    *semaphore.Weighted
	page   *semaphore.Weighted
	embed  *semaphore.Weighted
	vision chan struct{}
}

func newSemaphores(perf ingestconfig.PerformanceConfig) *semaphores {
	return &semaphores{
		doc:    semaphore.NewWeighted(int64(perf.MaxWorkers)),
		page:   semaphore.NewWeighted(int64(perf.MaxPageConcurrency)),
		embed:  semaphore.NewWeighted(int64(perf.MaxConcurrencyEmbed)),
		vision: make(chan struct{}, 1),
	}
}

// Orchestrator is the ingestion pipeline's top-level entry point.
type Orchestrator struct {
	cfg    *ingestconfig.Config
	logger *slog.Logger

	input          ingestdomain.InputSource
	artifacts      ingestdomain.ArtifactStore
	extractor      ingestdomain.Extractor
	tableRenderer  ingestdomain.TableRenderer
	mediaDescriber ingestdomain.MediaDescriber
	chunker        ingestdomain.Chunker
	embeddings     ingestdomain.EmbeddingsProvider
	vectorStore    ingestdomain.VectorStore
	pageSplitter   *extractor.PagePdfSplitter

	integrated bool
	semaphores *semaphores
}

// Run discovers every document InputSource reports and drives it through
// the per-document state machine, honoring Config.Action.DocumentAction.
// It returns only after every document has reached a terminal state;
// per-document failures are recorded on the returned PipelineStatus and
// never surface as the method's error.
func (o *Orchestrator) Run(ctx context.Context) (ingestdomain.PipelineStatus, error) {
	startedAt := time.Now().UTC()

	if ingestdomain.DocumentAction(o.cfg.Action.DocumentAction) == ingestdomain.ActionRemoveAll {
		return o.runRemoveAll(ctx, startedAt)
	}

	fileIDs, err := o.input.List(ctx)
	if err != nil {
		return ingestdomain.PipelineStatus{}, err
	}

	results := make([]ingestdomain.IngestionResult, 0, len(fileIDs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, fileID := range fileIDs {
		if err := o.semaphores.doc.Acquire(ctx, 1); err != nil {
			break // context cancelled; stop launching new documents
		}
		wg.Add(1)
		go func(fileID string) {
			defer wg.Done()
			defer o.semaphores.doc.Release(1)

			result := o.processDocument(ctx, fileID)

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}(fileID)
	}
	wg.Wait()

	status := buildStatus(startedAt, results)
	o.persistStatus(ctx, status)
	return status, nil
}

func (o *Orchestrator) runRemoveAll(ctx context.Context, startedAt time.Time) (ingestdomain.PipelineStatus, error) {
	n, err := o.vectorStore.DeleteAll(ctx)
	result := ingestdomain.IngestionResult{Filename: "*", Success: err == nil, ChunksIndexed: n}
	if err != nil {
		result.ErrorMessage = err.Error()
	}
	if o.cfg.Action.CleanupArtifacts {
		if paths, listErr := o.artifacts.List(ctx, "documents/"); listErr == nil {
			for _, p := range paths {
				_ = o.artifacts.Delete(ctx, p)
			}
		}
	}
	status := buildStatus(startedAt, []ingestdomain.IngestionResult{result})
	o.persistStatus(ctx, status)
	return status, nil
}

func buildStatus(startedAt time.Time, results []ingestdomain.IngestionResult) ingestdomain.PipelineStatus {
	status := ingestdomain.PipelineStatus{
		TotalDocuments: len(results),
		Results:        results,
		StartedAt:      startedAt.Format(time.RFC3339),
		FinishedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	for _, r := range results {
		if r.Success {
			status.SucceededDocuments++
		} else {
			status.FailedDocuments++
		}
	}
	return status
}
