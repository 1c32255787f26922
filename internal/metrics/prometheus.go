// Package metrics provides Prometheus metrics for the site backend.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/baditaflorin/go_startup_os/internal/models"
	"github.com/baditaflorin/go_startup_os/internal/monitor"
)

const namespace = "startup_os"

// Metrics holds all Prometheus metrics.
type Metrics struct {
	gatherer prometheus.Gatherer

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge

	probesTotal   *prometheus.CounterVec
	probeLatency  *prometheus.HistogramVec
	serviceStatus *prometheus.GaugeVec
	serviceMetric *prometheus.GaugeVec
	overallStatus prometheus.Gauge
	sweepsTotal   prometheus.Counter
	sweepDuration prometheus.Histogram
	lastChecked   prometheus.Gauge

	chatRepliesTotal *prometheus.CounterVec
	revealsTotal     prometheus.Counter
	subscribers      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// selects the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: gatherer,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		requestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),
		probesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probes_total",
				Help:      "Settled service probes by outcome",
			},
			[]string{"service", "status"},
		),
		probeLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "probe_latency_seconds",
				Help:      "Measured or simulated probe latency",
				Buckets:   []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.75, 1, 2.5, 5, 10},
			},
			[]string{"service"},
		),
		serviceStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "service_status",
				Help:      "Latest service status (1 = healthy, 0.5 = degraded, 0 = error)",
			},
			[]string{"service"},
		),
		serviceMetric: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "service_metric",
				Help:      "Latest infrastructure metric reported by a probe",
			},
			[]string{"service", "kind"},
		),
		overallStatus: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "overall_status",
				Help:      "Roll-up of the last sweep (1 = healthy, 0.5 = degraded, 0 = error)",
			},
		),
		sweepsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweeps_total",
				Help:      "Completed health check sweeps",
			},
		),
		sweepDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sweep_duration_seconds",
				Help:      "Wall-clock duration of a full sweep",
				Buckets:   []float64{0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 10, 15},
			},
		),
		lastChecked: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_checked_timestamp_seconds",
				Help:      "Unix time the last sweep started",
			},
		),
		chatRepliesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chat_replies_total",
				Help:      "Chat replies by matched topic",
			},
			[]string{"topic"},
		),
		revealsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "animation_reveals_total",
				Help:      "Elements revealed by reveal requests",
			},
		),
		subscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "event_subscribers",
				Help:      "Open status event streams",
			},
		),
	}
}

// Handler serves the registry these metrics were registered with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records metrics for an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordChatReply counts a chat reply by topic.
func (m *Metrics) RecordChatReply(topic string) {
	m.chatRepliesTotal.WithLabelValues(topic).Inc()
}

// RecordReveals counts revealed elements.
func (m *Metrics) RecordReveals(n int) {
	m.revealsTotal.Add(float64(n))
}

// SubscriberAdded tracks an opened event stream.
func (m *Metrics) SubscriberAdded() { m.subscribers.Inc() }

// SubscriberRemoved tracks a closed event stream.
func (m *Metrics) SubscriberRemoved() { m.subscribers.Dec() }

func statusValue(s models.Status) float64 {
	switch s {
	case models.StatusHealthy:
		return 1
	case models.StatusDegraded:
		return 0.5
	default:
		return 0
	}
}

// Sink mirrors monitor updates into the collectors.
type Sink struct {
	m *Metrics

	mu      sync.Mutex
	started time.Time
	now     func() time.Time
}

var _ monitor.StatusSink = (*Sink)(nil)

// Sink returns a StatusSink feeding these metrics.
func (m *Metrics) Sink() *Sink {
	return &Sink{m: m, now: time.Now}
}

// SetLastChecked marks the start of a sweep.
func (s *Sink) SetLastChecked(at time.Time) {
	s.m.lastChecked.Set(float64(at.Unix()))
	s.mu.Lock()
	s.started = s.now()
	s.mu.Unlock()
}

// SetChecking is a no-op; only settled results are recorded.
func (s *Sink) SetChecking(string) {}

// SetStatus records one settled probe.
func (s *Sink) SetStatus(id string, res models.ProbeResult) {
	s.m.probesTotal.WithLabelValues(id, string(res.Status)).Inc()
	s.m.probeLatency.WithLabelValues(id).Observe(float64(res.LatencyMs) / 1000)
	s.m.serviceStatus.WithLabelValues(id).Set(statusValue(res.Status))
	if res.Metric != nil {
		s.m.serviceMetric.WithLabelValues(id, string(res.Metric.Kind)).Set(res.Metric.Value)
	}
}

// SetOverall records the end of a sweep.
func (s *Sink) SetOverall(o monitor.Overall) {
	s.m.overallStatus.Set(statusValue(o.Status))
	s.m.sweepsTotal.Inc()

	s.mu.Lock()
	started := s.started
	s.started = time.Time{}
	s.mu.Unlock()
	if !started.IsZero() {
		s.m.sweepDuration.Observe(s.now().Sub(started).Seconds())
	}
}

// MetricsServer provides a separate HTTP server for Prometheus metrics.
type MetricsServer struct {
	server *http.Server
	logger *zap.Logger
}

// NewMetricsServer creates a new metrics server.
func NewMetricsServer(port int, path string, m *Metrics, logger *zap.Logger) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	return &MetricsServer{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start starts the metrics server. It blocks until the server stops.
func (ms *MetricsServer) Start() error {
	ms.logger.Info("starting metrics server", zap.String("addr", ms.server.Addr))
	if err := ms.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the metrics server.
func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

// MetricsMiddleware creates middleware that records HTTP metrics. Paths are
// labelled with the route template when one is known, so path variables do
// not explode cardinality.
func MetricsMiddleware(m *Metrics, route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.requestsInFlight.Inc()
			defer m.requestsInFlight.Dec()

			start := time.Now()
			rw := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			path := r.URL.Path
			if route != nil {
				if tpl := route(r); tpl != "" {
					path = tpl
				}
			}
			m.RecordHTTPRequest(r.Method, path, rw.statusCode, time.Since(start))
		})
	}
}

// metricsResponseWriter wraps http.ResponseWriter to capture the status code.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code.
func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps event streams working through the wrapper.
func (rw *metricsResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
