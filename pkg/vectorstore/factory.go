package vectorstore

import (
	"fmt"

	"github.com/liliang-cn/docingest/pkg/ingestconfig"
	"github.com/liliang-cn/docingest/pkg/ingestdomain"
)

// New builds the VectorStore selected by cfg.Provider, with the embedding
// width supplied by the caller (the orchestrator reads it off the
// constructed EmbeddingsProvider after Factory wiring, per the §6
// dimension-mismatch check). wantIntegrated carries the config's request
// for server-side embedding; a provider that cannot honor it must reject
// at construction rather than silently ignore the flag (§4.4).
func New(cfg ingestconfig.VectorStoreConfig, dimensions int, wantIntegrated bool) (ingestdomain.VectorStore, error) {
	switch cfg.Provider {
	case "sqlite":
		if wantIntegrated {
			return nil, fmt.Errorf("vectorstore: sqlite store does not support integrated vectorization")
		}
		return NewSQLiteStore(SQLiteConfig{
			Path:            cfg.SQLite.Path,
			Dimensions:      dimensions,
			UploadBatchSize: cfg.UploadBatchSize,
		})
	case "qdrant":
		return NewQdrantStore(QdrantConfig{
			Host:                    cfg.Qdrant.Host,
			Port:                    cfg.Qdrant.Port,
			APIKey:                  cfg.Qdrant.APIKey,
			Collection:              cfg.Qdrant.Collection,
			Dimensions:              dimensions,
			UploadBatchSize:         cfg.UploadBatchSize,
			IntegratedVectorization: wantIntegrated,
		})
	default:
		return nil, fmt.Errorf("vectorstore: unknown provider %q", cfg.Provider)
	}
}
