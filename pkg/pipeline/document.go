package pipeline

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/liliang-cn/docingest/pkg/artifactstore"
	"github.com/liliang-cn/docingest/pkg/ingestdomain"
	"github.com/liliang-cn/docingest/pkg/ingesterr"
)

// processDocument runs one file through the full per-document state
// machine (§4.1) and returns its terminal IngestionResult. It never
// panics or returns an error: every failure is classified and recorded.
func (o *Orchestrator) processDocument(ctx context.Context, fileID string) ingestdomain.IngestionResult {
	start := time.Now()

	filename, data, sourceURL, err := o.input.Read(ctx, fileID)
	if err != nil {
		return failResult(fileID, start, err)
	}

	action := ingestdomain.DocumentAction(o.cfg.Action.DocumentAction)
	if action == ingestdomain.ActionRemove {
		return o.processRemove(ctx, filename, start)
	}

	result, chunkCount, warnings := o.processAdd(ctx, filename, data, sourceURL, start)
	_ = chunkCount
	_ = warnings
	return result
}

func (o *Orchestrator) processRemove(ctx context.Context, filename string, start time.Time) ingestdomain.IngestionResult {
	n, err := o.vectorStore.DeleteBySourcefile(ctx, filename)
	if err != nil {
		return failResult(filename, start, err)
	}
	if o.cfg.Action.CleanupArtifacts {
		stem := artifactstore.Stem(filename)
		if paths, listErr := o.artifacts.List(ctx, stem+"/"); listErr == nil {
			for _, p := range paths {
				_ = o.artifacts.Delete(ctx, p)
			}
		}
		_ = o.artifacts.Delete(ctx, artifactstore.DocumentsPath(filename))
	}
	return ingestdomain.IngestionResult{
		Filename:              filename,
		Success:               true,
		ChunksIndexed:         n,
		ProcessingTimeSeconds: time.Since(start).Seconds(),
	}
}

// processAdd implements INIT -> READ -> (PDF? SPLIT_PAGES : SKIP) ->
// UPLOAD_FULL -> EXTRACT -> ENRICH_TABLES -> ENRICH_IMAGES -> CHUNK ->
// (integrated? SKIP : EMBED) -> DELETE_PRIOR_BY_SOURCEFILE -> UPSERT ->
// DONE_OK/DONE_FAIL.
func (o *Orchestrator) processAdd(ctx context.Context, filename string, data []byte, sourceURL string, start time.Time) (ingestdomain.IngestionResult, int, []string) {
	var warnings []string

	sum := md5.Sum(data)
	doc := ingestdomain.DocumentMetadata{
		Sourcefile: filename,
		MD5Hash:    hex.EncodeToString(sum[:]),
		FileSize:   int64(len(data)),
	}

	fullURL, err := o.uploadWithRetry(ctx, artifactstore.DocumentsPath(filename), data)
	if err != nil {
		return failResult(filename, start, err), 0, warnings
	}
	doc.StorageURL = fullURL
	if doc.StorageURL == "" {
		doc.StorageURL = sourceURL
	}

	if strings.ToLower(filepath.Ext(filename)) == ".pdf" {
		if w, err := o.splitAndUploadPages(ctx, artifactstore.Stem(filename), data); err != nil {
			return failResult(filename, start, err), 0, warnings
		} else {
			warnings = append(warnings, w...)
		}
	}

	var pages []ingestdomain.ExtractedPage
	err = withRetry(ctx, resourceExtraction, func() error {
		p, extractErr := o.extractor.Extract(ctx, filename, data)
		if extractErr != nil {
			return extractErr
		}
		pages = p
		return nil
	})
	if err != nil {
		return failResult(filename, start, err), 0, warnings
	}

	o.enrichTables(pages, &warnings)
	if err := o.enrichImages(ctx, pages); err != nil {
		return failResult(filename, start, err), 0, warnings
	}
	o.uploadImages(ctx, artifactstore.Stem(filename), pages, &warnings)

	chunks, chunkWarnings, err := o.chunker.Chunk(ctx, doc, pages)
	if err != nil {
		return failResult(filename, start, err), 0, warnings
	}
	warnings = append(warnings, chunkWarnings...)

	if !o.integrated {
		if err := o.embedChunks(ctx, chunks); err != nil {
			return failResult(filename, start, err), 0, warnings
		}
	}

	if _, err := o.vectorStore.DeleteBySourcefile(ctx, filename); err != nil {
		return failResult(filename, start, err), 0, warnings
	}
	n, err := o.vectorStore.UpsertDocuments(ctx, chunks, !o.integrated)
	if err != nil {
		return failResult(filename, start, err), 0, warnings
	}

	o.uploadManifest(ctx, doc, pages, n, warnings)

	return ingestdomain.IngestionResult{
		Filename:              filename,
		Success:               true,
		ChunksIndexed:         n,
		Warnings:              warnings,
		ProcessingTimeSeconds: time.Since(start).Seconds(),
	}, n, warnings
}

func (o *Orchestrator) uploadWithRetry(ctx context.Context, path string, data []byte) (string, error) {
	var url string
	err := withRetry(ctx, resourceStorage, func() error {
		u, err := o.artifacts.Upload(ctx, path, data)
		if err != nil {
			return ingesterr.WrapWithContext(err, ingesterr.ArtifactStoreDown, "pipeline", "upload", "artifact upload failed for "+path)
		}
		url = u
		return nil
	})
	return url, err
}

// splitAndUploadPages uploads each PDF page's artifact bytes, bounded by
// the page-level semaphore so a single document never monopolizes
// W_page's I/O concurrency.
func (o *Orchestrator) splitAndUploadPages(ctx context.Context, stem string, data []byte) ([]string, error) {
	pages, err := o.pageSplitter.Split(ctx, data)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var warnings []string
	var wg sync.WaitGroup
	var firstErr error

	for _, p := range pages {
		if err := o.semaphores.page.Acquire(ctx, 1); err != nil {
			return warnings, err
		}
		wg.Add(1)
		go func(p pdfPage) {
			defer wg.Done()
			defer o.semaphores.page.Release(1)

			path := artifactstore.PagePath(stem, p.PageNum, "txt")
			if _, err := o.uploadWithRetry(ctx, path, p.Bytes); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				warnings = append(warnings, fmt.Sprintf("failed to upload page %d artifact: %v", p.PageNum, err))
				mu.Unlock()
			}
		}(pdfPage{PageNum: p.PageNum, Bytes: p.Bytes})
	}
	wg.Wait()

	if firstErr != nil && !o.cfg.Extraction.PartialPageTolerance {
		return warnings, firstErr
	}
	return warnings, nil
}

// pdfPage mirrors extractor.PdfPage to avoid importing extractor just for
// a value type inside the per-page upload goroutine closure.
type pdfPage struct {
	PageNum int
	Bytes   []byte
}

// enrichTables renders every table on every page in place. A render
// failure degrades to a best-effort plain-text fallback rather than
// failing the document (§4.1 ENRICH_TABLES).
func (o *Orchestrator) enrichTables(pages []ingestdomain.ExtractedPage, warnings *[]string) {
	for pi := range pages {
		for ti := range pages[pi].Tables {
			table := &pages[pi].Tables[ti]
			if _, err := o.tableRenderer.Render(table); err != nil {
				*warnings = append(*warnings, fmt.Sprintf("table %s render failed, using plain fallback: %v", table.TableID, err))
				table.RenderedText = fallbackPlainTable(table)
			}
		}
	}
}

func fallbackPlainTable(table *ingestdomain.ExtractedTable) string {
	var b strings.Builder
	for _, row := range table.Grid {
		for _, cell := range row {
			b.WriteString(cell.Text)
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// enrichImages describes every figure on every page, strictly
// sequentially across the whole document via the capacity-1 vision gate
// (§5 S_vision). A single image's description failure leaves it empty
// without failing the document.
func (o *Orchestrator) enrichImages(ctx context.Context, pages []ingestdomain.ExtractedPage) error {
	for pi := range pages {
		if len(pages[pi].Images) == 0 {
			continue
		}
		select {
		case o.semaphores.vision <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		images := make([]*ingestdomain.ExtractedImage, len(pages[pi].Images))
		for ii := range pages[pi].Images {
			images[ii] = &pages[pi].Images[ii]
		}
		err := withRetry(ctx, resourceVision, func() error {
			return o.mediaDescriber.Describe(ctx, images, pages[pi].Text)
		})
		<-o.semaphores.vision

		if err != nil {
			o.logger.Warn("media description failed for page, leaving descriptions empty", "page", pages[pi].PageNum, "error", err)
		}
	}
	return nil
}

// uploadImages persists every figure's raw bytes to the artifact store and
// replaces ImageBytes with the resulting FigureURL, satisfying the data
// model's "exactly one non-null after upload" invariant. A per-image
// upload failure is recorded as a warning and leaves that image's bytes in
// place rather than failing the document (images are best-effort, like
// their description).
func (o *Orchestrator) uploadImages(ctx context.Context, stem string, pages []ingestdomain.ExtractedPage, warnings *[]string) {
	for pi := range pages {
		for ii := range pages[pi].Images {
			img := &pages[pi].Images[ii]
			if len(img.ImageBytes) == 0 {
				continue
			}
			path := artifactstore.FigurePath(stem, img.FigureID, "png")
			url, err := o.uploadWithRetry(ctx, path, img.ImageBytes)
			if err != nil {
				*warnings = append(*warnings, fmt.Sprintf("failed to upload figure %s: %v", img.FigureID, err))
				continue
			}
			img.FigureURL = url
			img.ImageBytes = nil
		}
	}
}

// embedChunks fills Embedding on every chunk, issuing EmbedBatch calls in
// parallel batches of VectorStore.UploadBatchSize bounded by the
// embedding-level semaphore.
func (o *Orchestrator) embedChunks(ctx context.Context, chunks []ingestdomain.ChunkDocument) error {
	batchSize := o.vectorStore.UploadBatchSize()
	if batchSize <= 0 {
		batchSize = 100
	}

	var wg sync.WaitGroup
	errs := make([]error, (len(chunks)+batchSize-1)/batchSize)

	for batchIdx := 0; batchIdx*batchSize < len(chunks); batchIdx++ {
		lo := batchIdx * batchSize
		hi := lo + batchSize
		if hi > len(chunks) {
			hi = len(chunks)
		}

		if err := o.semaphores.embed.Acquire(ctx, 1); err != nil {
			return err
		}
		wg.Add(1)
		go func(idx, lo, hi int) {
			defer wg.Done()
			defer o.semaphores.embed.Release(1)

			texts := make([]string, hi-lo)
			for i := lo; i < hi; i++ {
				texts[i-lo] = chunks[i].Text
			}

			var vectors [][]float32
			err := withRetry(ctx, resourceEmbeddings, func() error {
				v, err := o.embeddings.EmbedBatch(ctx, texts)
				if err != nil {
					return ingesterr.WrapWithContext(err, ingesterr.TransientNetwork, "pipeline", "embed", "embedding batch failed")
				}
				vectors = v
				return nil
			})
			if err != nil {
				errs[idx] = err
				return
			}
			if len(vectors) != len(texts) {
				errs[idx] = ingesterr.New(ingesterr.EmbeddingShape, "pipeline", "embed",
					fmt.Sprintf("embedding batch returned %d vectors for %d inputs", len(vectors), len(texts)), nil)
				return
			}
			for i, v := range vectors {
				chunks[lo+i].Embedding = v
			}
		}(batchIdx, lo, hi)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) uploadManifest(ctx context.Context, doc ingestdomain.DocumentMetadata, pages []ingestdomain.ExtractedPage, chunkCount int, warnings []string) {
	m := buildManifest(doc, pages, chunkCount, warnings)
	data, err := m.marshal()
	if err != nil {
		o.logger.Error("failed to marshal manifest", "sourcefile", doc.Sourcefile, "error", err)
		return
	}
	path := artifactstore.ManifestPath(artifactstore.Stem(doc.Sourcefile))
	if _, err := o.uploadWithRetry(ctx, path, data); err != nil {
		o.logger.Error("failed to upload manifest", "sourcefile", doc.Sourcefile, "error", err)
	}
}

func failResult(filename string, start time.Time, err error) ingestdomain.IngestionResult {
	return ingestdomain.IngestionResult{
		Filename:              filename,
		Success:               false,
		ErrorKind:             ingestdomain.ErrorKind(ingesterr.KindOf(err)),
		ErrorMessage:          err.Error(),
		ProcessingTimeSeconds: time.Since(start).Seconds(),
	}
}
