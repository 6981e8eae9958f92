package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Phani130825/ask-a-coach/internal/bootstrap"
	"github.com/Phani130825/ask-a-coach/internal/config"
	"github.com/Phani130825/ask-a-coach/internal/observability/logging"
	"github.com/Phani130825/ask-a-coach/internal/observability/tracing"
)

const service = "coach-worker"

func main() {
	cfg := config.Load()
	logger := logging.New(logging.Options{Service: service, Level: cfg.LogLevel, FilePath: cfg.LogFile})
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.Options{Enabled: cfg.OTelEnabled, Endpoint: cfg.OTelEndpoint, Service: service}, logger)
	if err != nil {
		logger.Fatal("tracing_init_failed", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("bootstrap_failed", zap.Error(err))
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           app.WorkerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", zap.String("port", cfg.WorkerMetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_failed", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", zap.String("subject", cfg.NATSSubject), zap.String("group", cfg.NATSGroup))
	err = app.Queue.SubscribeResumeIngested(ctx, func(handlerCtx context.Context, resumeID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, cfg.RunTimeout)
		defer cancel()

		start := time.Now()
		app.WorkerMetrics.StartResume()
		err := app.ProcessUC.ProcessByID(processCtx, resumeID)
		app.WorkerMetrics.FinishResume(time.Since(start), err)
		return err
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", zap.Error(err))
	}
}
