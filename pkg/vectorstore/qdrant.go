package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/liliang-cn/docingest/pkg/ingestdomain"
)

const defaultQdrantTimeout = 30 * time.Second

var qdrantWaitTrue = true

// QdrantConfig configures the Qdrant-backed VectorStore.
type QdrantConfig struct {
	Host                    string
	Port                    int
	APIKey                  string
	Collection              string
	Dimensions              int
	UploadBatchSize         int
	IntegratedVectorization bool
}

// QdrantStore implements ingestdomain.VectorStore against a Qdrant
// collection over gRPC. Chunk ids are turned into deterministic UUIDv5
// values (namespaced on the chunk id string) so re-ingesting the same
// sourcefile overwrites the same points instead of accumulating
// duplicates, the idempotent-replace behavior the pipeline requires.
type QdrantStore struct {
	conn            *grpc.ClientConn
	points          pb.PointsClient
	collections     pb.CollectionsClient
	collectionName  string
	dimensions      int
	uploadBatchSize int
	integratedVec   bool
}

// NewQdrantStore dials addr and ensures the target collection exists with
// the right vector size.
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("vectorstore: qdrant host is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = "docingest"
	}
	if cfg.Dimensions == 0 {
		return nil, fmt.Errorf("vectorstore: qdrant dimensions must be set")
	}
	batchSize := cfg.UploadBatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	addr := fmt.Sprintf("%s:%d", strings.TrimPrefix(strings.TrimPrefix(cfg.Host, "http://"), "https://"), cfg.Port)

	ctx, cancel := context.WithTimeout(context.Background(), defaultQdrantTimeout)
	defer cancel()

	conn, err := grpc.DialContext(ctx, addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("vectorstore: dial qdrant: %w", err)
	}

	s := &QdrantStore{
		conn:            conn,
		points:          pb.NewPointsClient(conn),
		collections:     pb.NewCollectionsClient(conn),
		collectionName:  cfg.Collection,
		dimensions:      cfg.Dimensions,
		uploadBatchSize: batchSize,
		integratedVec:   cfg.IntegratedVectorization,
	}

	if err := s.ensureCollection(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	listResp, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("vectorstore: list qdrant collections: %w", err)
	}

	for _, col := range listResp.Collections {
		if col.Name == s.collectionName {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(s.dimensions),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("vectorstore: create qdrant collection: %w", err)
	}
	return nil
}

func qdrantPointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

// UpsertDocuments writes chunks in batches of at most UploadBatchSize
// points per request.
func (s *QdrantStore) UpsertDocuments(ctx context.Context, chunks []ingestdomain.ChunkDocument, includeEmbeddings bool) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	if !includeEmbeddings {
		return 0, fmt.Errorf("vectorstore: qdrant requires embeddings on upsert")
	}

	upserted := 0
	for start := 0; start < len(chunks); start += s.uploadBatchSize {
		end := start + s.uploadBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		points := make([]*pb.PointStruct, 0, len(batch))
		for _, c := range batch {
			payload := map[string]*pb.Value{
				"chunk_id":   {Kind: &pb.Value_StringValue{StringValue: c.ChunkID}},
				"sourcefile": {Kind: &pb.Value_StringValue{StringValue: c.Document.Sourcefile}},
				"text":       {Kind: &pb.Value_StringValue{StringValue: c.Text}},
			}

			points = append(points, &pb.PointStruct{
				Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: qdrantPointID(c.ChunkID)}},
				Vectors: &pb.Vectors{
					VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: c.Embedding}},
				},
				Payload: payload,
			})
		}

		if _, err := s.points.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: s.collectionName,
			Points:         points,
			Wait:           &qdrantWaitTrue,
		}); err != nil {
			return upserted, fmt.Errorf("vectorstore: qdrant upsert batch at %d: %w", start, err)
		}
		upserted += len(batch)
	}
	return upserted, nil
}

// DeleteBySourcefile removes every point whose sourcefile payload field
// matches.
func (s *QdrantStore) DeleteBySourcefile(ctx context.Context, sourcefile string) (int, error) {
	resp, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collectionName,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{{
						ConditionOneOf: &pb.Condition_Field{
							Field: &pb.FieldCondition{
								Key:   "sourcefile",
								Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: sourcefile}},
							},
						},
					}},
				},
			},
		},
		Wait: &qdrantWaitTrue,
	})
	if err != nil {
		return 0, fmt.Errorf("vectorstore: qdrant delete by sourcefile: %w", err)
	}
	_ = resp
	return -1, nil // Qdrant's delete-by-filter response does not report a count.
}

// DeleteAll recreates the collection, the most reliable way to clear every
// point in Qdrant.
func (s *QdrantStore) DeleteAll(ctx context.Context) (int, error) {
	if _, err := s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: s.collectionName}); err != nil {
		return 0, fmt.Errorf("vectorstore: qdrant delete collection: %w", err)
	}
	if err := s.ensureCollection(ctx); err != nil {
		return 0, fmt.Errorf("vectorstore: qdrant recreate collection: %w", err)
	}
	return -1, nil // collection-level reset does not report a point count.
}

// Search runs a Qdrant nearest-neighbor search, optionally filtered by
// sourcefile.
func (s *QdrantStore) Search(ctx context.Context, query []float32, topK int, filters map[string]string) ([]ingestdomain.SearchHit, error) {
	var filter *pb.Filter
	if sourcefile, ok := filters["sourcefile"]; ok && sourcefile != "" {
		filter = &pb.Filter{
			Must: []*pb.Condition{{
				ConditionOneOf: &pb.Condition_Field{
					Field: &pb.FieldCondition{
						Key:   "sourcefile",
						Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: sourcefile}},
					},
				},
			}},
		}
	}

	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collectionName,
		Vector:         query,
		Filter:         filter,
		Limit:          uint64(topK),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: qdrant search: %w", err)
	}

	hits := make([]ingestdomain.SearchHit, 0, len(resp.Result))
	for _, point := range resp.Result {
		hit := ingestdomain.SearchHit{Score: float64(point.Score), Fields: map[string]string{}}
		if payload := point.Payload; payload != nil {
			if v, ok := payload["chunk_id"]; ok {
				hit.ChunkID = v.GetStringValue()
			}
			if v, ok := payload["text"]; ok {
				hit.Text = v.GetStringValue()
			}
			if v, ok := payload["sourcefile"]; ok {
				hit.Fields["sourcefile"] = v.GetStringValue()
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Dimensions returns the collection's configured vector size.
func (s *QdrantStore) Dimensions() int { return s.dimensions }

// UploadBatchSize returns the configured per-request point batch size.
func (s *QdrantStore) UploadBatchSize() int { return s.uploadBatchSize }

// SupportsIntegratedVectorization reports whether this collection was
// configured to let Qdrant compute embeddings server-side.
func (s *QdrantStore) SupportsIntegratedVectorization() bool { return s.integratedVec }

// Close tears down the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
