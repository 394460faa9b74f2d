package pipeline

import (
	"context"
	"math/rand"
	"time"

	"github.com/liliang-cn/docingest/pkg/ingesterr"
)

// resource names the collaborator a retried call is talking to, selecting
// the backoff base/cap per §4.1.
type resource string

const (
	resourceExtraction resource = "extraction" // Document Intelligence / other extractor APIs
	resourceEmbeddings resource = "embeddings"
	resourceVision     resource = "vision"
	resourceStorage    resource = "storage" // ArtifactStore / VectorStore: no base/cap named explicitly in §4.1, so this uses the same shape with a conservative default
)

func backoffBounds(r resource) (base, capDuration time.Duration) {
	switch r {
	case resourceExtraction:
		return 5 * time.Second, 30 * time.Second
	case resourceEmbeddings:
		return 15 * time.Second, 60 * time.Second
	case resourceVision:
		return 1 * time.Second, 20 * time.Second
	default:
		return 2 * time.Second, 30 * time.Second
	}
}

const maxAttempts = 3

// withRetry calls fn up to maxAttempts times, backing off exponentially
// with jitter between attempts, scaled by resource's per-kind base and
// capped at its ceiling. A non-retryable error (per ingesterr.IsRetryable)
// short-circuits immediately; ctx cancellation aborts the wait.
func withRetry(ctx context.Context, r resource, fn func() error) error {
	base, capDuration := backoffBounds(r)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !ingesterr.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts-1 {
			break
		}

		wait := base * time.Duration(int64(1)<<uint(attempt))
		if wait > capDuration {
			wait = capDuration
		}
		jitter := time.Duration(rand.Int63n(int64(wait/2) + 1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait/2 + jitter):
		}
	}
	return lastErr
}
