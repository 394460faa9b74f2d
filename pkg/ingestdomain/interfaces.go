package ingestdomain

import "context"

// TokenCounter counts tokens for a given model's tokenizer. Implementations
// must be safe for concurrent use; the shared chunker calls Count from
// every document worker running at once.
type TokenCounter interface {
	Count(model, text string) (int, error)
}

// InputSource enumerates and reads source documents, local filesystem or
// object-store backed.
type InputSource interface {
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, fileID string) (filename string, data []byte, sourceURL string, err error)
}

// ArtifactStore is the durable sink for full documents, per-page artifacts,
// extracted images, and run status records.
type ArtifactStore interface {
	Upload(ctx context.Context, path string, data []byte) (url string, err error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, path string) error
}

// Extractor turns raw document bytes into an ordered page sequence. One
// concrete variant is selected per extractor.mode.
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) ([]ExtractedPage, error)
	SupportsFormat(filename string) bool
}

// MediaDescriber annotates image descriptions in place. Must be called
// sequentially per document to respect vision-model rate limits; the
// orchestrator enforces this via S_vision rather than relying on the
// implementation.
type MediaDescriber interface {
	Describe(ctx context.Context, images []*ExtractedImage, pageText string) error
}

// TableRenderer renders a table to its textual form. Pure function: no
// I/O, no shared state.
type TableRenderer interface {
	Render(table *ExtractedTable) (string, error)
}

// Chunker converts an enriched page sequence into an ordered, invariant-
// satisfying ChunkDocument list. Deterministic: identical inputs produce
// identical output.
type Chunker interface {
	Chunk(ctx context.Context, doc DocumentMetadata, pages []ExtractedPage) ([]ChunkDocument, []string, error)
}

// EmbeddingsProvider is the capability contract every embedding backend
// implements (Ollama, OpenAI, LM Studio, Gemini).
type EmbeddingsProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	MaxSeqLength() int
}

// VectorStore is the capability contract every vector-store backend
// implements (SQLite, Qdrant).
type VectorStore interface {
	UpsertDocuments(ctx context.Context, chunks []ChunkDocument, includeEmbeddings bool) (int, error)
	DeleteBySourcefile(ctx context.Context, sourcefile string) (int, error)
	DeleteAll(ctx context.Context) (int, error)
	Search(ctx context.Context, query []float32, topK int, filters map[string]string) ([]SearchHit, error)
	Dimensions() int
	UploadBatchSize() int
	SupportsIntegratedVectorization() bool
	Close() error
}
