package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/Phani130825/ask-a-coach/internal/bootstrap"
	"github.com/Phani130825/ask-a-coach/internal/config"
	"github.com/Phani130825/ask-a-coach/internal/observability/logging"
)

// openApp builds the full dependency graph with logs routed to stderr so that
// stdout stays free for command output.
func openApp(ctx context.Context) (*bootstrap.App, *zap.Logger, error) {
	cfg := config.Load()
	logger := logging.New(logging.Options{
		Service:  "coachctl",
		Level:    cfg.LogLevel,
		FilePath: cfg.LogFile,
		Stderr:   true,
	})
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return app, logger, nil
}
