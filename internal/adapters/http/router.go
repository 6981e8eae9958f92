package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Phani130825/ask-a-coach/internal/adapters/http/openapi"
	"github.com/Phani130825/ask-a-coach/internal/core/domain"
	"github.com/Phani130825/ask-a-coach/internal/core/ports"
	"github.com/Phani130825/ask-a-coach/internal/observability/metrics"
)

const defaultMaxUploadBytes = 10 << 20

type Deps struct {
	Ingest     ports.ResumeIngestor
	Resumes    ports.ResumeReader
	Tailor     ports.ResumeTailor
	Trigger    ports.RunTrigger
	Interviews ports.InterviewService
	Pipelines  ports.PipelineTracker
}

type Options struct {
	Service        string
	JWTSecret      string
	MaxUploadBytes int64

	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	OverloadWait   time.Duration

	Logger  *zap.Logger
	Metrics *metrics.HTTPServerMetrics
}

type Router struct {
	deps     Deps
	opts     Options
	logger   *zap.Logger
	validate *validator.Validate
}

func NewRouter(deps Deps, opts Options) *Router {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Service == "" {
		opts.Service = "coach-api"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Router{
		deps:     deps,
		opts:     opts,
		logger:   opts.Logger,
		validate: validator.New(),
	}
}

// Handler assembles the API. It fails only when the embedded API
// description cannot be loaded.
func (rt *Router) Handler() (http.Handler, error) {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/resumes", rt.uploadResume)
	api.HandleFunc("GET /v1/resumes", rt.listResumes)
	api.HandleFunc("GET /v1/resumes/{resume_id}", rt.getResume)
	api.HandleFunc("POST /v1/resumes/{resume_id}/tailor", rt.tailorResume)
	api.HandleFunc("POST /v1/resumes/{resume_id}/orchestrate", rt.triggerOrchestration)

	api.HandleFunc("POST /v1/interviews", rt.createInterview)
	api.HandleFunc("GET /v1/interviews", rt.listInterviews)
	api.HandleFunc("GET /v1/interviews/{session_id}", rt.getInterview)
	api.HandleFunc("POST /v1/interviews/{session_id}/start", rt.startInterview)
	api.HandleFunc("POST /v1/interviews/{session_id}/end", rt.endInterview)
	api.HandleFunc("POST /v1/interviews/{session_id}/cancel", rt.cancelInterview)
	api.HandleFunc("POST /v1/interviews/{session_id}/responses", rt.submitResponse)

	api.HandleFunc("GET /v1/pipelines", rt.listPipelines)
	api.HandleFunc("GET /v1/pipelines/{pipeline_type}", rt.getPipeline)
	api.HandleFunc("POST /v1/pipelines/{pipeline_type}", rt.createPipeline)
	api.HandleFunc("PUT /v1/pipelines/{pipeline_type}/stages/{stage}", rt.setPipelineStage)

	api.HandleFunc("GET /v1/analytics/interviews.xlsx", rt.exportInterviews)

	doc, err := openapi.Load()
	if err != nil {
		return nil, err
	}
	validate, err := requestValidationMiddleware(doc, rt.logger)
	if err != nil {
		return nil, err
	}

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", rt.healthz)
	if rt.opts.Metrics != nil {
		root.Handle("GET /metrics", rt.opts.Metrics.Handler())
	}
	root.Handle("/v1/", identityMiddleware(rt.opts.JWTSecret, validate(api)))

	var handler http.Handler = root
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, rt.opts.OverloadWait, rt.rejected("overloaded"))
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst, rt.rejected("rate_limited"))
	if rt.opts.Metrics != nil {
		handler = rt.opts.Metrics.Middleware(rt.opts.Service, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler), nil
}

func (rt *Router) rejected(reason string) func() {
	if rt.opts.Metrics == nil {
		return nil
	}
	return func() { rt.opts.Metrics.RecordRejected(rt.opts.Service, reason) }
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	if err := rt.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": validationFields(err)})
		return false
	}
	return true
}

func validationFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fe.Field()+": "+fe.Tag())
	}
	return out
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, status, map[string]string{
		"error":      msg,
		"request_id": requestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// ownedBy hides resources of other users behind a not-found error.
func ownedBy(owner, resourceOwner, op, id string) error {
	if owner != resourceOwner {
		return domain.WrapError(domain.ErrNotFound, op, errors.New(id))
	}
	return nil
}

func zapRequestID(r *http.Request) zap.Field {
	return zap.String("request_id", requestIDFromContext(r.Context()))
}
