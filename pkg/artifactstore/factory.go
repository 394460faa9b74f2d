package artifactstore

import (
	"context"

	"github.com/liliang-cn/docingest/pkg/ingestconfig"
	"github.com/liliang-cn/docingest/pkg/ingestdomain"
	"github.com/liliang-cn/docingest/pkg/ingesterr"
)

// New builds the ArtifactStore selected by cfg.Mode (already resolved from
// InputConfig.Mode when left unset; see ingestconfig.Load).
func New(ctx context.Context, cfg ingestconfig.ArtifactsConfig) (ingestdomain.ArtifactStore, error) {
	switch cfg.Mode {
	case "local":
		return NewLocalStore(cfg.Local.Dir)
	case "object-store":
		return NewS3Store(ctx, S3Config{
			Bucket:       cfg.ObjectStore.Container,
			Prefix:       cfg.ObjectStore.Prefix,
			Region:       cfg.ObjectStore.Region,
			Endpoint:     cfg.ObjectStore.Endpoint,
			AccessKey:    cfg.ObjectStore.AccessKey,
			SecretKey:    cfg.ObjectStore.SecretKey,
			UsePathStyle: cfg.ObjectStore.UsePathStyle,
		})
	default:
		return nil, ingesterr.New(ingesterr.ConfigInvalid, "artifactstore", "new", "unknown artifacts mode "+cfg.Mode, nil)
	}
}
