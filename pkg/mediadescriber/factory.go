package mediadescriber

import (
	"github.com/liliang-cn/docingest/pkg/ingestconfig"
	"github.com/liliang-cn/docingest/pkg/ingestdomain"
	"github.com/liliang-cn/docingest/pkg/ingesterr"
)

// New builds the MediaDescriber selected by cfg.Mode.
func New(cfg ingestconfig.MediaConfig) (ingestdomain.MediaDescriber, error) {
	switch cfg.Mode {
	case "vision":
		return NewVisionDescriber(VisionConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Prompt:  cfg.Prompt,
		})
	case "disabled":
		return NewDisabledDescriber(), nil
	default:
		return nil, ingesterr.New(ingesterr.ConfigInvalid, "mediadescriber", "new", "unknown media describer mode "+cfg.Mode, nil)
	}
}
