package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/liliang-cn/docingest/pkg/artifactstore"
	"github.com/liliang-cn/docingest/pkg/ingestdomain"
)

// persistStatus writes status to status/run-{ISO8601}.json (§6). Failure
// to persist the run summary is logged, not returned: Run()'s contract is
// that it always reports the documents it processed.
func (o *Orchestrator) persistStatus(ctx context.Context, status ingestdomain.PipelineStatus) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		o.logger.Error("failed to marshal run status", "error", err)
		return
	}

	runID := strings.NewReplacer(":", "", "-", "").Replace(status.StartedAt)
	path := artifactstore.StatusPath(runID)
	if _, err := o.artifacts.Upload(ctx, path, data); err != nil {
		o.logger.Error("failed to persist run status", "path", path, "error", err)
	}
}
