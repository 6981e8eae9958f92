package httpadapter

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Phani130825/ask-a-coach/internal/observability/metrics"
)

func TestRateLimitRejectsBurstAndCountsIt(t *testing.T) {
	m := metrics.NewHTTPServerMetrics("coach-api")
	handler := newTestDeps().handler(t, Options{
		RateLimitRPS:   1,
		RateLimitBurst: 1,
		Metrics:        m,
	})

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After on 429")
	}

	scrape := httptest.NewRecorder()
	m.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(scrape.Body)
	if !strings.Contains(string(body), `coach_http_rejected_total{reason="rate_limited",service="coach-api"} 1`) {
		t.Fatalf("expected rejected counter in scrape:\n%s", body)
	}
}

func TestBackpressureShedsLoadWhileSubmissionIsSlow(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int, 1)
	var shed atomic.Int32

	slowSubmit := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusOK)
	})
	handler := backpressureMiddleware(slowSubmit, 1, 20*time.Millisecond, func() { shed.Add(1) })

	go func() {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/interviews/s-1/responses", nil))
		done <- res.Code
	}()
	<-started

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/interviews/s-1", nil))
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while saturated, got %d", res.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil || body["error"] == "" {
		t.Fatalf("expected overload error body, got %v (%v)", body, err)
	}
	if shed.Load() != 1 {
		t.Fatalf("expected reject hook once, got %d", shed.Load())
	}

	close(release)
	select {
	case code := <-done:
		if code != http.StatusOK {
			t.Fatalf("slow submission expected 200, got %d", code)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for the slow submission")
	}
}

func TestBackpressureDisabledPassesThrough(t *testing.T) {
	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	res := httptest.NewRecorder()
	backpressureMiddleware(base, 0, time.Millisecond, nil).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/pipelines", nil))
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected passthrough, got %d", res.Code)
	}
}
