package inputsource

import (
	"context"

	"github.com/liliang-cn/docingest/pkg/ingestconfig"
	"github.com/liliang-cn/docingest/pkg/ingestdomain"
	"github.com/liliang-cn/docingest/pkg/ingesterr"
)

// New builds the InputSource selected by cfg.Mode.
func New(ctx context.Context, cfg ingestconfig.InputConfig) (ingestdomain.InputSource, error) {
	switch cfg.Mode {
	case "local":
		return NewLocalSource(cfg.Local.Glob), nil
	case "object-store":
		return NewS3Source(ctx, S3Config{
			Bucket:       cfg.ObjectStore.Container,
			Prefix:       cfg.ObjectStore.Prefix,
			Filter:       cfg.ObjectStore.Filter,
			Region:       cfg.ObjectStore.Region,
			Endpoint:     cfg.ObjectStore.Endpoint,
			AccessKey:    cfg.ObjectStore.AccessKey,
			SecretKey:    cfg.ObjectStore.SecretKey,
			UsePathStyle: cfg.ObjectStore.UsePathStyle,
		})
	default:
		return nil, ingesterr.New(ingesterr.ConfigInvalid, "inputsource", "new", "unknown input mode "+cfg.Mode, nil)
	}
}
