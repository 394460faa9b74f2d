package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/docingest/pkg/extractor"
	"github.com/liliang-cn/docingest/pkg/ingestconfig"
	"github.com/liliang-cn/docingest/pkg/ingestdomain"
	"github.com/liliang-cn/docingest/pkg/ingesterr"
	"github.com/liliang-cn/docingest/pkg/layoutchunker"
)

// --- fakes -------------------------------------------------------------

type fakeInputSource struct {
	files map[string][]byte
}

func (f *fakeInputSource) List(ctx context.Context) ([]string, error) {
	var ids []string
	for id := range f.files {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeInputSource) Read(ctx context.Context, fileID string) (string, []byte, string, error) {
	data, ok := f.files[fileID]
	if !ok {
		return "", nil, "", fmt.Errorf("no such file %s", fileID)
	}
	return fileID, data, "fake://" + fileID, nil
}

type fakeArtifactStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeArtifactStore() *fakeArtifactStore {
	return &fakeArtifactStore{objects: make(map[string][]byte)}
}

func (f *fakeArtifactStore) Upload(ctx context.Context, path string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = data
	return "fake://" + path, nil
}

func (f *fakeArtifactStore) List(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for p := range f.objects {
		if len(p) >= len(prefix) && p[:len(prefix)] == prefix {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeArtifactStore) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, path)
	return nil
}

type wordCounter struct{}

func (wordCounter) Count(model, text string) (int, error) {
	n := 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n, nil
}

type fakeEmbeddings struct {
	dims int
	mu   sync.Mutex
	calls int
}

func (f *fakeEmbeddings) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (f *fakeEmbeddings) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, f.dims)
		v[0] = float32(len(texts[i]))
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbeddings) Dimensions() int    { return f.dims }
func (f *fakeEmbeddings) ModelName() string  { return "fake-embed" }
func (f *fakeEmbeddings) MaxSeqLength() int  { return 8192 }

// fakeVectorStore is an in-memory VectorStore keyed by chunk id, mirroring
// the merge-or-upload/idempotent-replace contract of §4.4/§4.5.
type fakeVectorStore struct {
	mu         sync.Mutex
	byID       map[string]ingestdomain.ChunkDocument
	dims       int
	batchSize  int
	integrated bool
}

func newFakeVectorStore(dims int) *fakeVectorStore {
	return &fakeVectorStore{byID: make(map[string]ingestdomain.ChunkDocument), dims: dims, batchSize: 1000}
}

func (f *fakeVectorStore) UpsertDocuments(ctx context.Context, chunks []ingestdomain.ChunkDocument, includeEmbeddings bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range chunks {
		f.byID[c.ChunkID] = c
	}
	return len(chunks), nil
}

func (f *fakeVectorStore) DeleteBySourcefile(ctx context.Context, sourcefile string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, c := range f.byID {
		if c.Document.Sourcefile == sourcefile {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeVectorStore) DeleteAll(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.byID)
	f.byID = make(map[string]ingestdomain.ChunkDocument)
	return n, nil
}

func (f *fakeVectorStore) Search(ctx context.Context, query []float32, topK int, filters map[string]string) ([]ingestdomain.SearchHit, error) {
	return nil, nil
}

func (f *fakeVectorStore) Dimensions() int                        { return f.dims }
func (f *fakeVectorStore) UploadBatchSize() int                   { return f.batchSize }
func (f *fakeVectorStore) SupportsIntegratedVectorization() bool  { return f.integrated }
func (f *fakeVectorStore) Close() error                           { return nil }

func (f *fakeVectorStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

// flakyPageExtractor fails page 3 of a synthetic 5-page document with an
// ExtractionFailed error, honoring partialPageTolerance the way
// extractor.PDFExtractor does internally (S6).
type flakyPageExtractor struct {
	partialPageTolerance bool
}

func (e *flakyPageExtractor) Extract(ctx context.Context, filename string, data []byte) ([]ingestdomain.ExtractedPage, error) {
	var pages []ingestdomain.ExtractedPage
	for i := 1; i <= 5; i++ {
		if i == 3 {
			if e.partialPageTolerance {
				continue
			}
			return nil, ingesterr.New(ingesterr.ExtractionFailed, "extractor", "extract", "page 3 failed", nil)
		}
		pages = append(pages, ingestdomain.ExtractedPage{PageNum: i, Text: fmt.Sprintf("page %d content words here", i)})
	}
	return pages, nil
}

func (e *flakyPageExtractor) SupportsFormat(filename string) bool { return true }

// --- test harness --------------------------------------------------------

func newTestOrchestrator(t *testing.T, extr ingestdomain.Extractor, vs *fakeVectorStore, embed *fakeEmbeddings, action string) (*Orchestrator, *fakeInputSource, *fakeArtifactStore) {
	t.Helper()

	in := &fakeInputSource{files: map[string][]byte{
		"doc1.txt": []byte("hello world this is a small document"),
	}}
	artifacts := newFakeArtifactStore()

	ck := layoutchunker.New(wordCounter{}, "fake-model", 1024, layoutchunker.Config{
		TargetTokens:     50,
		OverlapPercent:   0,
		CrossPageOverlap: true,
	})

	cfg := &ingestconfig.Config{}
	cfg.Action.DocumentAction = action
	cfg.Extraction.PartialPageTolerance = true
	cfg.Performance.MaxWorkers = 2
	cfg.Performance.MaxPageConcurrency = 2
	cfg.Performance.MaxConcurrencyEmbed = 2

	return &Orchestrator{
		cfg:            cfg,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		input:          in,
		artifacts:      artifacts,
		extractor:      extr,
		tableRenderer:  noopTableRenderer{},
		mediaDescriber: noopMediaDescriber{},
		chunker:        ck,
		embeddings:     embed,
		vectorStore:    vs,
		pageSplitter:   extractor.NewPagePdfSplitter(),
		integrated:     vs.integrated,
		semaphores:     newSemaphores(cfg.Performance),
	}, in, artifacts
}

type noopTableRenderer struct{}

func (noopTableRenderer) Render(table *ingestdomain.ExtractedTable) (string, error) {
	table.RenderedText = table.Caption
	return table.RenderedText, nil
}

type noopMediaDescriber struct{}

func (noopMediaDescriber) Describe(ctx context.Context, images []*ingestdomain.ExtractedImage, pageText string) error {
	return nil
}

// --- tests -----------------------------------------------------------

func TestOrchestrator_AddThenIdempotentReplace(t *testing.T) {
	extr := &flakyPageExtractor{partialPageTolerance: true}
	vs := newFakeVectorStore(4)
	embed := &fakeEmbeddings{dims: 4}

	o, _, _ := newTestOrchestrator(t, extr, vs, embed, "add")

	status1, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, status1.TotalDocuments)
	require.Equal(t, 1, status1.SucceededDocuments)
	firstIDs := chunkIDSet(vs)
	require.NotEmpty(t, firstIDs)

	status2, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, status2.SucceededDocuments)

	secondIDs := chunkIDSet(vs)
	assert.Equal(t, firstIDs, secondIDs, "idempotent replace must converge to the same indexed chunk ids")
	assert.Equal(t, len(firstIDs), vs.count())
}

func TestOrchestrator_PartialPageTolerance_On(t *testing.T) {
	extr := &flakyPageExtractor{partialPageTolerance: true}
	vs := newFakeVectorStore(4)
	embed := &fakeEmbeddings{dims: 4}
	o, _, _ := newTestOrchestrator(t, extr, vs, embed, "add")

	status, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, status.Results, 1)
	assert.True(t, status.Results[0].Success)
}

func TestOrchestrator_PartialPageTolerance_Off(t *testing.T) {
	extr := &flakyPageExtractor{partialPageTolerance: false}
	vs := newFakeVectorStore(4)
	embed := &fakeEmbeddings{dims: 4}
	o, _, _ := newTestOrchestrator(t, extr, vs, embed, "add")

	status, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, status.Results, 1)
	assert.False(t, status.Results[0].Success)
	assert.Equal(t, ingestdomain.ErrorKind(ingesterr.ExtractionFailed), status.Results[0].ErrorKind)
	assert.Contains(t, status.Results[0].ErrorMessage, "page 3")
}

func TestOrchestrator_RemoveAll(t *testing.T) {
	extr := &flakyPageExtractor{partialPageTolerance: true}
	vs := newFakeVectorStore(4)
	embed := &fakeEmbeddings{dims: 4}
	o, _, _ := newTestOrchestrator(t, extr, vs, embed, "add")

	_, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Greater(t, vs.count(), 0)

	o.cfg.Action.DocumentAction = "remove_all"
	status, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Results[0].Success)
	assert.Equal(t, 0, vs.count())
}

func chunkIDSet(vs *fakeVectorStore) map[string]bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	out := make(map[string]bool, len(vs.byID))
	for id := range vs.byID {
		out[id] = true
	}
	return out
}
