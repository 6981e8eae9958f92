package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

// WorkerMetrics covers resume processing and orchestration runs. It also
// serves as the orchestrator's RunObserver.
type WorkerMetrics struct {
	service  string
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec

	runsInFlight  prometheus.Gauge
	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	stageOutcomes *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "resume_process_total",
			Help:      "Total processed resumes by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "resume_process_duration_seconds",
			Help:      "Resume processing duration in seconds by status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "resume_process_in_flight",
			Help:        "Number of in-flight resume processing tasks.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between resume upload event and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	runsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "orchestrator",
			Name:        "runs_in_flight",
			Help:        "Number of orchestration runs in progress.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "runs_total",
			Help:      "Finished orchestration runs by result (complete, partial, failed).",
		},
		[]string{"service", "result"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "run_duration_seconds",
			Help:      "Orchestration run duration in seconds.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200, 2400},
		},
		[]string{"service", "result"},
	)
	stageOutcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "stage_outcomes_total",
			Help:      "Per-step orchestration outcomes.",
		},
		[]string{"service", "step", "interview_type", "status"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag, runsInFlight, runsTotal, runDuration, stageOutcomes)

	return &WorkerMetrics{
		service:         service,
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		queueLag:        queueLag,
		runsInFlight:    runsInFlight,
		runsTotal:       runsTotal,
		runDuration:     runDuration,
		stageOutcomes:   stageOutcomes,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartResume() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishResume(duration time.Duration, err error) {
	m.processInFlight.Dec()
	status := statusOf(err)
	m.processTotal.WithLabelValues(m.service, status).Inc()
	m.processDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RunStarted() {
	m.runsInFlight.Inc()
}

func (m *WorkerMetrics) RunFinished(report *domain.RunReport) {
	m.runsInFlight.Dec()
	if report == nil {
		return
	}
	result := RunResult(report)
	m.runsTotal.WithLabelValues(m.service, result).Inc()
	m.runDuration.WithLabelValues(m.service, result).Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	for _, o := range report.Outcomes {
		m.stageOutcomes.WithLabelValues(m.service, o.Step, orNone(string(o.InterviewType)), string(o.Status)).Inc()
	}
}

// RunResult buckets a report: complete (no failures), partial, or failed
// (nothing productive happened).
func RunResult(report *domain.RunReport) string {
	switch {
	case !report.Productive():
		return "failed"
	case report.PartialFailure():
		return "partial"
	default:
		return "complete"
	}
}

func orNone(v string) string {
	if v == "" {
		return "none"
	}
	return v
}
