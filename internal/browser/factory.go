package browser

import (
	"context"

	"go.uber.org/zap"

	"github.com/webpilot-ai/webpilot/internal/agent"
	"github.com/webpilot-ai/webpilot/internal/config"
)

// Factory adapts New into the driver factory the task pool consumes, so
// each pooled task gets its own browser session.
func Factory(cfg config.BrowserConfig, logger *zap.Logger) agent.DriverFactory {
	return func(ctx context.Context) (agent.Driver, error) {
		return New(ctx, cfg, logger)
	}
}
