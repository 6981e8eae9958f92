package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	httpadapter "github.com/Phani130825/ask-a-coach/internal/adapters/http"
	"github.com/Phani130825/ask-a-coach/internal/bootstrap"
	"github.com/Phani130825/ask-a-coach/internal/config"
	"github.com/Phani130825/ask-a-coach/internal/observability/logging"
	"github.com/Phani130825/ask-a-coach/internal/observability/metrics"
	"github.com/Phani130825/ask-a-coach/internal/observability/tracing"
)

const service = "coach-api"

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

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("bootstrap_failed", zap.Error(err))
	}
	defer app.Close()

	handler, err := httpadapter.NewRouter(httpadapter.Deps{
		Ingest:     app.IngestUC,
		Resumes:    app.Resumes,
		Tailor:     app.TailorUC,
		Trigger:    app.Trigger,
		Interviews: app.InterviewUC,
		Pipelines:  app.Tracker,
	}, httpadapter.Options{
		Service:        service,
		JWTSecret:      cfg.JWTSecret,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimitRPS:   cfg.APIRateLimitRPS,
		RateLimitBurst: cfg.APIRateLimitBurst,
		MaxInFlight:    cfg.APIMaxInFlight,
		OverloadWait:   cfg.APIOverloadWait,
		Logger:         logger,
		Metrics:        metrics.NewHTTPServerMetrics(service),
	}).Handler()
	if err != nil {
		logger.Fatal("router_init_failed", zap.Error(err))
	}

	listener, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		logger.Fatal("api_listen_failed", zap.Error(err))
	}
	if cfg.APIMaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConnections)
	}

	server := &http.Server{
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", zap.String("port", cfg.APIPort))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("api_server_failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing_shutdown_failed", zap.Error(err))
	}
}
