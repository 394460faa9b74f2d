// Package vectorstore implements ingestdomain.VectorStore against the two
// wired backends: a self-contained SQLite store and Qdrant.
package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	"github.com/liliang-cn/docingest/pkg/ingestdomain"
)

// SQLiteConfig configures the SQLite-backed VectorStore.
type SQLiteConfig struct {
	Path            string
	Dimensions      int
	UploadBatchSize int
}

// SQLiteStore implements ingestdomain.VectorStore on a single local SQLite
// file, storing embeddings as JSON blobs and scoring matches by cosine
// similarity computed in Go. Neither wired driver (modernc.org/sqlite by
// default, mattn/go-sqlite3 under -tags cgosqlite) ships a
// vec_distance_cosine function the way a sqlite-vec extension would, so
// Search loads every row's embedding instead of pushing the distance
// computation into SQL. This is the only component of the pipeline that
// scales linearly with corpus size rather than with query volume; it
// exists for single-machine deployments where standing up Qdrant is not
// worth it, not as a production-scale substitute for it.
type SQLiteStore struct {
	db              *sql.DB
	dimensions      int
	uploadBatchSize int
}

// NewSQLiteStore opens (creating if necessary) the SQLite database at
// cfg.Path and ensures its schema exists.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("vectorstore: sqlite path is required")
	}
	batchSize := cfg.UploadBatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	db, err := sql.Open(sqlDriverName, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: open sqlite database: %w", err)
	}

	s := &SQLiteStore{db: db, dimensions: cfg.Dimensions, uploadBatchSize: batchSize}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			chunk_id    TEXT PRIMARY KEY,
			sourcefile  TEXT NOT NULL,
			page_num    INTEGER NOT NULL,
			text        TEXT NOT NULL,
			token_count INTEGER NOT NULL,
			embedding   TEXT NOT NULL CHECK(json_valid(embedding)),
			tables      TEXT CHECK(tables IS NULL OR json_valid(tables)),
			figures     TEXT CHECK(figures IS NULL OR json_valid(figures))
		);

		CREATE INDEX IF NOT EXISTS idx_chunks_sourcefile ON chunks(sourcefile);
	`)
	if err != nil {
		return fmt.Errorf("vectorstore: create sqlite schema: %w", err)
	}
	return nil
}

// UpsertDocuments replaces each chunk by its chunk_id.
func (s *SQLiteStore) UpsertDocuments(ctx context.Context, chunks []ingestdomain.ChunkDocument, includeEmbeddings bool) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("vectorstore: begin sqlite tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks
		(chunk_id, sourcefile, page_num, text, token_count, embedding, tables, figures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("vectorstore: prepare sqlite upsert: %w", err)
	}
	defer stmt.Close()

	upserted := 0
	for _, c := range chunks {
		embedding := c.Embedding
		if !includeEmbeddings {
			embedding = nil
		}
		embeddingJSON, err := json.Marshal(embedding)
		if err != nil {
			return upserted, fmt.Errorf("vectorstore: marshal embedding for %s: %w", c.ChunkID, err)
		}
		tablesJSON, err := json.Marshal(c.Tables)
		if err != nil {
			return upserted, fmt.Errorf("vectorstore: marshal tables for %s: %w", c.ChunkID, err)
		}
		figuresJSON, err := json.Marshal(c.Figures)
		if err != nil {
			return upserted, fmt.Errorf("vectorstore: marshal figures for %s: %w", c.ChunkID, err)
		}

		if _, err := stmt.ExecContext(ctx,
			c.ChunkID, c.Document.Sourcefile, c.Page.PageNum, c.Text, c.TokenCount,
			string(embeddingJSON), string(tablesJSON), string(figuresJSON),
		); err != nil {
			return upserted, fmt.Errorf("vectorstore: upsert %s: %w", c.ChunkID, err)
		}
		upserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("vectorstore: commit sqlite upsert: %w", err)
	}
	return upserted, nil
}

// DeleteBySourcefile removes every chunk belonging to sourcefile, paginated
// so a single call never holds an unbounded result set in memory.
func (s *SQLiteStore) DeleteBySourcefile(ctx context.Context, sourcefile string) (int, error) {
	total := 0
	for {
		res, err := s.db.ExecContext(ctx,
			"DELETE FROM chunks WHERE chunk_id IN (SELECT chunk_id FROM chunks WHERE sourcefile = ? LIMIT ?)",
			sourcefile, s.uploadBatchSize)
		if err != nil {
			return total, fmt.Errorf("vectorstore: delete by sourcefile: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("vectorstore: rows affected: %w", err)
		}
		total += int(n)
		if n == 0 {
			break
		}
	}
	return total, nil
}

// DeleteAll truncates the chunk table, paginated the same way as
// DeleteBySourcefile.
func (s *SQLiteStore) DeleteAll(ctx context.Context) (int, error) {
	total := 0
	for {
		res, err := s.db.ExecContext(ctx,
			"DELETE FROM chunks WHERE chunk_id IN (SELECT chunk_id FROM chunks LIMIT ?)",
			s.uploadBatchSize)
		if err != nil {
			return total, fmt.Errorf("vectorstore: delete all: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("vectorstore: rows affected: %w", err)
		}
		total += int(n)
		if n == 0 {
			break
		}
	}
	return total, nil
}

// Search scores every stored chunk by cosine similarity against query and
// returns the topK best matches.
func (s *SQLiteStore) Search(ctx context.Context, query []float32, topK int, filters map[string]string) ([]ingestdomain.SearchHit, error) {
	sourcefile := filters["sourcefile"]

	sqlQuery := "SELECT chunk_id, sourcefile, text, embedding FROM chunks"
	args := []any{}
	if sourcefile != "" {
		sqlQuery += " WHERE sourcefile = ?"
		args = append(args, sourcefile)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: sqlite search query: %w", err)
	}
	defer rows.Close()

	type scored struct {
		hit   ingestdomain.SearchHit
		score float64
	}
	var all []scored
	for rows.Next() {
		var chunkID, sourcefile, text, embeddingJSON string
		if err := rows.Scan(&chunkID, &sourcefile, &text, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("vectorstore: scan search row: %w", err)
		}
		var embedding []float32
		if err := json.Unmarshal([]byte(embeddingJSON), &embedding); err != nil {
			continue
		}
		score := cosineSimilarity(query, embedding)
		all = append(all, scored{
			hit: ingestdomain.SearchHit{
				ChunkID: chunkID,
				Score:   score,
				Text:    text,
				Fields:  map[string]string{"sourcefile": sourcefile},
			},
			score: score,
		})
	}

	// Partial selection sort for the topK best scores; corpora this store
	// targets are small enough that a full sort would be equally cheap,
	// but this avoids paying for it on the common topK << len(all) case.
	if topK > len(all) {
		topK = len(all)
	}
	for i := 0; i < topK; i++ {
		best := i
		for j := i + 1; j < len(all); j++ {
			if all[j].score > all[best].score {
				best = j
			}
		}
		all[i], all[best] = all[best], all[i]
	}

	hits := make([]ingestdomain.SearchHit, topK)
	for i := 0; i < topK; i++ {
		hits[i] = all[i].hit
	}
	return hits, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Dimensions returns the configured embedding width.
func (s *SQLiteStore) Dimensions() int { return s.dimensions }

// UploadBatchSize returns the configured batch size for bulk operations.
func (s *SQLiteStore) UploadBatchSize() int { return s.uploadBatchSize }

// SupportsIntegratedVectorization is always false: this store never calls
// out to an embeddings API itself.
func (s *SQLiteStore) SupportsIntegratedVectorization() bool { return false }

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
