package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/v1/resumes":                             "/v1/resumes",
		"/v1/resumes/abc-123":                     "/v1/resumes/{resume_id}",
		"/v1/resumes/abc-123/tailor":              "/v1/resumes/{resume_id}/tailor",
		"/v1/interviews/s-1/responses":            "/v1/interviews/{session_id}/responses",
		"/v1/pipelines/interview/stages/module_7": "/v1/pipelines/interview/stages/{stage}",
		"/healthz":                                "/healthz",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHTTPMiddlewareRecordsStatus(t *testing.T) {
	m := NewHTTPServerMetrics("coach-api")
	handler := m.Middleware("coach-api", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/resumes/r-1", nil))
	m.RecordSubmission("coach-api", "hr", nil)
	m.RecordTailoring("coach-api", errors.New("down"))

	body := scrape(t, m.Handler())
	for _, want := range []string{
		`coach_http_requests_total{method="GET",path="/v1/resumes/{resume_id}",service="coach-api",status="418"} 1`,
		`coach_interview_submissions_total{interview_type="hr",service="coach-api",status="success"} 1`,
		`coach_tailoring_requests_total{service="coach-api",status="error"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, body)
		}
	}
}

func TestWorkerMetricsObservesRuns(t *testing.T) {
	m := NewWorkerMetrics("coach-worker")
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	m.RunStarted()
	m.RunFinished(&domain.RunReport{
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
		Outcomes: []domain.StageOutcome{
			{Step: domain.StepTailor, Status: domain.OutcomeSucceeded},
			{Step: domain.StepQuestions, InterviewType: domain.InterviewHR, Status: domain.OutcomeFailed},
		},
	})
	m.StartResume()
	m.FinishResume(time.Second, nil)
	m.ObserveQueueLag(-time.Second)

	body := scrape(t, m.Handler())
	for _, want := range []string{
		`coach_orchestrator_runs_total{result="partial",service="coach-worker"} 1`,
		`coach_orchestrator_stage_outcomes_total{interview_type="hr",service="coach-worker",status="failed",step="generate_questions"} 1`,
		`coach_orchestrator_stage_outcomes_total{interview_type="none",service="coach-worker",status="succeeded",step="tailor"} 1`,
		`coach_worker_resume_process_total{service="coach-worker",status="success"} 1`,
		`coach_orchestrator_runs_in_flight{service="coach-worker"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, body)
		}
	}
}

func TestRunResult(t *testing.T) {
	failed := &domain.RunReport{Outcomes: []domain.StageOutcome{{Step: domain.StepTailor, Status: domain.OutcomeFailed}}}
	if got := RunResult(failed); got != "failed" {
		t.Fatalf("RunResult() = %q, want failed", got)
	}
	complete := &domain.RunReport{Outcomes: []domain.StageOutcome{{Step: domain.StepTailor, Status: domain.OutcomeSucceeded}}}
	if got := RunResult(complete); got != "complete" {
		t.Fatalf("RunResult() = %q, want complete", got)
	}
}

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	raw, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(raw)
}
