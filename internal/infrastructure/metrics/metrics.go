// internal/infrastructure/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"respond-dashboard/internal/types/dashboard"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics счетчики цикла обновления и HTTP сервера статуса.
// Методы безопасны для nil.
type Metrics struct {
	registry *prometheus.Registry

	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	tasks         *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec
	lastSuccess   *prometheus.GaugeVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewMetrics регистрирует метрики в собственном реестре
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "refresh_cycles_total",
			Help:      "Refresh cycle attempts by result (completed or skipped while one was in flight).",
		}, []string{"result"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dashboard",
			Name:      "refresh_cycle_duration_seconds",
			Help:      "Wall time of completed refresh cycles.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 8, 16, 24, 30},
		}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "loader_results_total",
			Help:      "Loader outcomes by task and error kind (empty kind = success).",
		}, []string{"task", "kind"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dashboard",
			Name:      "loader_duration_seconds",
			Help:      "Loader duration by task.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dashboard",
			Name:      "loader_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful load per task.",
		}, []string{"task"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "http_requests_total",
			Help:      "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dashboard",
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cycles,
		m.cycleDuration,
		m.tasks,
		m.taskDuration,
		m.lastSuccess,
		m.httpRequests,
		m.httpDuration,
	)

	return m
}

// CycleSkipped вызов пришел, пока цикл уже выполнялся
func (m *Metrics) CycleSkipped() {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues("skipped").Inc()
}

// CycleCompleted фиксирует завершенный цикл и исходы задач
func (m *Metrics) CycleCompleted(report dashboard.CycleReport) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues("completed").Inc()
	m.cycleDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())

	for _, t := range report.Tasks {
		m.tasks.WithLabelValues(string(t.Task), string(t.Kind)).Inc()
		m.taskDuration.WithLabelValues(string(t.Task)).Observe(t.Duration.Seconds())
		if t.OK() {
			m.lastSuccess.WithLabelValues(string(t.Task)).Set(float64(report.FinishedAt.Unix()))
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler считает запросы и длительность по маршруту
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// Handler экспозиция метрик
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry реестр метрик
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
