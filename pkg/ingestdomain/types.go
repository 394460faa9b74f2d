// Package ingestdomain holds the core data model shared by every stage of
// the ingestion pipeline: documents, pages, tables, figures, chunks, and
// the per-run/per-document result types.
package ingestdomain

import "fmt"

// DocumentMetadata identifies a source document. It is created once when
// ingestion of a file begins and never mutated afterward.
type DocumentMetadata struct {
	Sourcefile string `json:"sourcefile"`
	StorageURL string `json:"storage_url"`
	MD5Hash    string `json:"md5_hash"`
	FileSize   int64  `json:"file_size"`
}

// PageMetadata identifies one extracted page. Immutable after creation.
type PageMetadata struct {
	PageNum      int    `json:"page_num"`
	Sourcepage   string `json:"sourcepage"`
	PageBlobURL  string `json:"page_blob_url,omitempty"`
}

// TableCell is one grid cell of an ExtractedTable, with its span.
type TableCell struct {
	Text     string `json:"text"`
	RowSpan  int    `json:"row_span"`
	ColSpan  int    `json:"col_span"`
	RowStart int    `json:"row_start"`
	ColStart int    `json:"col_start"`
}

// ExtractedTable is a table found on a page, pending rendering.
type ExtractedTable struct {
	TableID      string      `json:"table_id"`
	Grid         [][]TableCell `json:"grid"`
	Caption      string      `json:"caption,omitempty"`
	RenderedText string      `json:"rendered_text"`
	TokenCount   int         `json:"token_count"`
	OffsetStart  int         `json:"offset_start"`
	OffsetEnd    int         `json:"offset_end"`
}

// ExtractedImage is a figure found on a page.
type ExtractedImage struct {
	PageNum     int     `json:"page_num"`
	FigureID    string  `json:"figure_id"`
	BBox        [4]float64 `json:"bbox"`
	Caption     string  `json:"caption,omitempty"`
	ImageBytes  []byte  `json:"-"`
	FigureURL   string  `json:"figure_url,omitempty"`
	Description string  `json:"description,omitempty"`
	OCRText     string  `json:"ocr_text,omitempty"`
	OffsetStart int     `json:"offset_start"`
	OffsetEnd   int     `json:"offset_end"`
}

// ExtractedPage is one page of a document after extraction and, later,
// enrichment. Text together with every table.RenderedText and every
// image.Description forms the enriched page text chunking operates over.
type ExtractedPage struct {
	PageNum int              `json:"page_num"`
	Text    string           `json:"text"`
	Tables  []ExtractedTable `json:"tables"`
	Images  []ExtractedImage `json:"images"`
}

// ChunkDocument is a bounded, indexable unit of enriched text. See
// invariants I1-I4 on the ChunkID format and overlap/atomicity rules.
type ChunkDocument struct {
	Document   DocumentMetadata `json:"document"`
	Page       PageMetadata     `json:"page"`
	ChunkID    string           `json:"chunk_id"`
	Text       string           `json:"text"`
	TokenCount int              `json:"token_count"`
	Embedding  []float32        `json:"embedding,omitempty"`
	Tables     []string         `json:"tables,omitempty"`
	Figures    []string         `json:"figures,omitempty"`
}

// BuildChunkID returns the canonical "{sourcefile}_p{page}_c{index}" id.
// index is 1-based within the page.
func BuildChunkID(sourcefile string, pageNum, index int) string {
	return fmt.Sprintf("%s_p%d_c%d", sourcefile, pageNum, index)
}

// ErrorKind classifies a failure for retry and reporting purposes. See
// ingesterr for the sentinel values and their retry semantics.
type ErrorKind string

// IngestionResult is the terminal record for one document in a run.
type IngestionResult struct {
	Filename             string    `json:"filename"`
	Success              bool      `json:"success"`
	ChunksIndexed        int       `json:"chunks_indexed"`
	ErrorKind            ErrorKind `json:"error_kind,omitempty"`
	ErrorMessage         string    `json:"error_message,omitempty"`
	Warnings             []string  `json:"warnings,omitempty"`
	ProcessingTimeSeconds float64  `json:"processing_time_seconds"`
}

// PipelineStatus summarizes one full Run().
type PipelineStatus struct {
	TotalDocuments      int                `json:"total_documents"`
	SucceededDocuments  int                `json:"succeeded_documents"`
	FailedDocuments     int                `json:"failed_documents"`
	Results             []IngestionResult  `json:"results"`
	StartedAt           string             `json:"started_at"`
	FinishedAt          string             `json:"finished_at"`
}

// SuccessRate returns the fraction of documents that succeeded, or 0 when
// no documents were processed.
func (s PipelineStatus) SuccessRate() float64 {
	if s.TotalDocuments == 0 {
		return 0
	}
	return float64(s.SucceededDocuments) / float64(s.TotalDocuments)
}

// SearchHit is one VectorStore.Search result. Present for contract
// completeness; the ingestion core never calls Search itself.
type SearchHit struct {
	ChunkID string            `json:"chunk_id"`
	Score   float64           `json:"score"`
	Text    string            `json:"text"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// DocumentAction selects what the orchestrator does with a matched file.
type DocumentAction string

const (
	ActionAdd       DocumentAction = "add"
	ActionRemove    DocumentAction = "remove"
	ActionRemoveAll DocumentAction = "remove_all"
)
