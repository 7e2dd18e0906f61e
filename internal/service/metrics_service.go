package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/moodle-engagement-api/internal/engagement"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the pipeline.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	pipelineDuration prometheus.Observer
	pipelineRuns     *prometheus.CounterVec
	studentsByStatus *prometheus.GaugeVec
	uploads          *prometheus.CounterVec
	droppedRows      prometheus.Counter
	alerts           *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	pipelineDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "engagement_pipeline_duration_seconds",
		Help:    "Duration of one filter, aggregate and classify pass",
		Buckets: prometheus.DefBuckets,
	})

	pipelineRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engagement_pipeline_runs_total",
		Help: "Pipeline passes by outcome",
	}, []string{"outcome"})

	studentsByStatus := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "engagement_students",
		Help: "Students per risk tier in the most recent pass",
	}, []string{"status"})

	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engagement_uploads_total",
		Help: "Uploaded activity logs by outcome",
	}, []string{"outcome"})

	droppedRows := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engagement_dropped_rows_total",
		Help: "Log rows dropped because their timestamp could not be parsed",
	})

	alerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engagement_alerts_total",
		Help: "Coordinator alert attempts by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, pipelineDuration, pipelineRuns, studentsByStatus, uploads, droppedRows, alerts, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		pipelineDuration: pipelineDuration,
		pipelineRuns:     pipelineRuns,
		studentsByStatus: studentsByStatus,
		uploads:          uploads,
		droppedRows:      droppedRows,
		alerts:           alerts,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveUpload counts an upload attempt and the rows it dropped.
func (m *MetricsService) ObserveUpload(outcome string, dropped int) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
	if dropped > 0 {
		m.droppedRows.Add(float64(dropped))
	}
}

// ObservePipeline records one pass. summaries may be nil when the pass failed.
func (m *MetricsService) ObservePipeline(outcome string, duration time.Duration, summaries []engagement.StudentSummary) {
	if m == nil {
		return
	}
	m.pipelineRuns.WithLabelValues(outcome).Inc()
	m.pipelineDuration.Observe(duration.Seconds())
	if summaries == nil {
		return
	}
	counts := map[engagement.Status]int{}
	for _, s := range summaries {
		counts[s.Status]++
	}
	for _, status := range []engagement.Status{engagement.StatusAtRisk, engagement.StatusWarning, engagement.StatusActive} {
		m.studentsByStatus.WithLabelValues(status.String()).Set(float64(counts[status]))
	}
}

// ObserveAlert counts an alert attempt by outcome.
func (m *MetricsService) ObserveAlert(outcome string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(outcome).Inc()
}
