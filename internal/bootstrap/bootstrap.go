package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Phani130825/ask-a-coach/internal/config"
	"github.com/Phani130825/ask-a-coach/internal/core/domain"
	"github.com/Phani130825/ask-a-coach/internal/core/ports"
	"github.com/Phani130825/ask-a-coach/internal/core/usecase"
	"github.com/Phani130825/ask-a-coach/internal/infrastructure/extractor/document"
	"github.com/Phani130825/ask-a-coach/internal/infrastructure/jobcatalog"
	"github.com/Phani130825/ask-a-coach/internal/infrastructure/jobfetch"
	"github.com/Phani130825/ask-a-coach/internal/infrastructure/llm"
	"github.com/Phani130825/ask-a-coach/internal/infrastructure/llm/gemini"
	"github.com/Phani130825/ask-a-coach/internal/infrastructure/llm/ollama"
	"github.com/Phani130825/ask-a-coach/internal/infrastructure/pipelinestore/memory"
	redisstore "github.com/Phani130825/ask-a-coach/internal/infrastructure/pipelinestore/redis"
	"github.com/Phani130825/ask-a-coach/internal/infrastructure/queue/nats"
	"github.com/Phani130825/ask-a-coach/internal/infrastructure/repository/postgres"
	"github.com/Phani130825/ask-a-coach/internal/infrastructure/resilience"
	"github.com/Phani130825/ask-a-coach/internal/infrastructure/storage/localfs"
	"github.com/Phani130825/ask-a-coach/internal/observability/metrics"
)

const jobFetchTimeout = 15 * time.Second

type App struct {
	Config config.Config
	Logger *zap.Logger

	Queue        ports.MessageQueue
	Resumes      ports.ResumeRepository
	IngestUC     ports.ResumeIngestor
	ProcessUC    ports.ResumeProcessor
	TailorUC     ports.ResumeTailor
	InterviewUC  ports.InterviewService
	Tracker      ports.PipelineTracker
	Orchestrator ports.Orchestrator
	Trigger      ports.RunTrigger

	WorkerMetrics *metrics.WorkerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	policy, err := domain.ParseCountPolicy(cfg.InterviewCountPolicy)
	if err != nil {
		return nil, fmt.Errorf("interview count policy: %w", err)
	}
	interviewTypes, err := parseInterviewTypes(cfg.InterviewTypes)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	closers := []func(){func() { _ = db.Close() }}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*App, error) {
		closeAll()
		return nil, err
	}

	if err := postgres.Migrate(ctx, db); err != nil {
		return fail(fmt.Errorf("migrate schema: %w", err))
	}
	resumes := postgres.NewResumeRepository(db)
	interviews := postgres.NewInterviewRepository(db)

	store, closeStore, err := buildPipelineStore(ctx, cfg, db)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeStore)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return fail(fmt.Errorf("init object storage: %w", err))
	}

	catalog, err := jobcatalog.Load(cfg.JobCatalogPath)
	if err != nil {
		return fail(err)
	}

	workerMetrics := metrics.NewWorkerMetrics("coach-worker")

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		QueueGroup:         cfg.NATSGroup,
		ResilienceExecutor: resilience.NewExecutor(resilience.QueuePolicy(), logger),
		Logger:             logger,
		OnDeliveryLag:      workerMetrics.ObserveQueueLag,
	})
	if err != nil {
		return fail(fmt.Errorf("init message queue: %w", err))
	}
	closers = append(closers, queue.Close)

	gateway, err := buildGateway(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}

	tracker := usecase.NewPipelineTrackerUseCase(store, nil)
	orchestrator := usecase.NewOrchestrateResumeUseCase(usecase.OrchestratorDeps{
		Resumes:    resumes,
		Interviews: interviews,
		Tracker:    tracker,
		Gateway:    gateway,
		Catalog:    catalog,
		Observer:   workerMetrics,
		Logger:     logger,
	}, usecase.OrchestratorOptions{
		QuestionsPerType:   cfg.QuestionsPerType,
		InterviewTypes:     interviewTypes,
		ParallelInterviews: cfg.ParallelInterviews,
		GatewayTimeout:     cfg.GatewayTimeout,
		CountPolicy:        policy,
	})

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:     queue,
		Resumes:   resumes,
		IngestUC:  usecase.NewIngestResumeUseCase(resumes, storage, queue, tracker, logger, nil),
		ProcessUC: usecase.NewProcessResumeUseCase(resumes, document.NewExtractor(storage), orchestrator, logger),
		TailorUC: usecase.NewTailorResumeUseCase(
			resumes, tracker, gateway, catalog, jobfetch.New(jobFetchTimeout), logger, nil, cfg.GatewayTimeout,
		),
		InterviewUC: usecase.NewInterviewUseCase(interviews, resumes, tracker, gateway, catalog, logger, nil, usecase.InterviewOptions{
			DefaultQuestionCount: cfg.QuestionsPerType,
			GatewayTimeout:       cfg.GatewayTimeout,
			CountPolicy:          policy,
		}),
		Tracker:      tracker,
		Orchestrator: orchestrator,
		Trigger:      usecase.NewQueueRunTrigger(resumes, queue),

		WorkerMetrics: workerMetrics,

		closeFn: closeAll,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// Migrate applies the schema without wiring the rest of the application.
func Migrate(ctx context.Context, cfg config.Config) error {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()
	return postgres.Migrate(ctx, db)
}

func buildPipelineStore(ctx context.Context, cfg config.Config, db *sql.DB) (ports.PipelineStore, func(), error) {
	switch cfg.PipelineStore {
	case "", "postgres":
		return postgres.NewPipelineRepository(db), func() {}, nil
	case "redis":
		client, err := redisstore.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("init redis pipeline store: %w", err)
		}
		return redisstore.NewStore(client), func() { _ = client.Close() }, nil
	case "memory":
		store := memory.NewStore()
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown pipeline store %q", cfg.PipelineStore)
	}
}

func buildGateway(ctx context.Context, cfg config.Config, logger *zap.Logger) (ports.AIGateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := resilience.GatewayPolicy()
	policy.Attempts = cfg.GatewayRetryMaxAttempts
	policy.Backoff = cfg.GatewayRetryBackoff
	policy.MaxBackoff = 4 * cfg.GatewayRetryBackoff
	policy.Breaker = cfg.GatewayBreakerEnabled
	policy.BreakerMinCalls = uint32(max(cfg.GatewayBreakerMinReqs, 1))
	policy.BreakerRatio = cfg.GatewayBreakerRatio
	policy.BreakerOpenFor = cfg.GatewayBreakerOpenFor
	executor := resilience.NewExecutor(policy, logger)

	var generator llm.JSONGenerator
	switch cfg.AIProvider {
	case "none":
		logger.Warn("ai_gateway_disabled")
		return llm.Unavailable{}, nil
	case "gemini":
		g, err := gemini.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, executor)
		if err != nil {
			return nil, fmt.Errorf("init gemini: %w", err)
		}
		generator = g
	case "", "ollama":
		generator = ollama.New(cfg.OllamaURL, cfg.OllamaModel, executor)
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AIProvider)
	}

	gateway, err := llm.NewGateway(generator, logger)
	if err != nil {
		return nil, fmt.Errorf("init ai gateway: %w", err)
	}
	if cfg.GatewayCacheTTL <= 0 {
		return gateway, nil
	}
	return llm.NewCachedGateway(gateway, cfg.GatewayCacheTTL), nil
}

func parseInterviewTypes(raw []string) ([]domain.InterviewType, error) {
	out := make([]domain.InterviewType, 0, len(raw))
	seen := make(map[domain.InterviewType]struct{}, len(raw))
	for _, item := range raw {
		t, err := domain.ParseInterviewType(item)
		if err != nil {
			return nil, fmt.Errorf("interview types: %w", err)
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}
