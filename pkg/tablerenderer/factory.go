package tablerenderer

import (
	"github.com/liliang-cn/docingest/pkg/ingestconfig"
	"github.com/liliang-cn/docingest/pkg/ingestdomain"
)

// New builds a Renderer for cfg.Render. Validation of the mode string
// happens in ingestconfig.Config.Validate; New trusts its caller.
func New(cfg ingestconfig.TableConfig) ingestdomain.TableRenderer {
	return &Renderer{mode: Mode(cfg.Render)}
}
