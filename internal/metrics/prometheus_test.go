package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baditaflorin/go_startup_os/internal/models"
	"github.com/baditaflorin/go_startup_os/internal/monitor"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewMetrics(prometheus.NewRegistry())
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	return string(body)
}

func TestSink(t *testing.T) {
	m := newTestMetrics(t)
	sink := m.Sink()

	clock := time.Unix(1_700_000_000, 0)
	sink.now = func() time.Time { return clock }

	sink.SetLastChecked(clock)
	sink.SetChecking("database")
	sink.SetStatus("database", models.ProbeResult{
		Status:    models.StatusHealthy,
		LatencyMs: 120,
		Metric:    &models.Metric{Kind: models.MetricConnections, Value: 17},
	})
	sink.SetStatus("api-auth", models.ProbeResult{Status: models.StatusDegraded, LatencyMs: 300})
	clock = clock.Add(400 * time.Millisecond)
	sink.SetOverall(monitor.Overall{Status: models.StatusDegraded})

	out := scrape(t, m)
	assert.Contains(t, out, `startup_os_probes_total{service="database",status="healthy"} 1`)
	assert.Contains(t, out, `startup_os_probes_total{service="api-auth",status="degraded"} 1`)
	assert.Contains(t, out, `startup_os_service_status{service="database"} 1`)
	assert.Contains(t, out, `startup_os_service_status{service="api-auth"} 0.5`)
	assert.Contains(t, out, `startup_os_service_metric{kind="connections",service="database"} 17`)
	assert.Contains(t, out, `startup_os_overall_status 0.5`)
	assert.Contains(t, out, `startup_os_sweeps_total 1`)
	assert.Contains(t, out, `startup_os_last_checked_timestamp_seconds 1.7e+09`)
	assert.Contains(t, out, `startup_os_sweep_duration_seconds_count 1`)
	assert.Contains(t, out, `startup_os_sweep_duration_seconds_sum 0.4`)
	assert.NotContains(t, out, `service_metric{kind="connections",service="api-auth"}`)
}

func TestSink_OverallWithoutStart(t *testing.T) {
	m := newTestMetrics(t)
	m.Sink().SetOverall(monitor.Overall{Status: models.StatusHealthy})

	out := scrape(t, m)
	assert.Contains(t, out, `startup_os_overall_status 1`)
	assert.Contains(t, out, `startup_os_sweep_duration_seconds_count 0`)
}

func TestChatAndReveals(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordChatReply("pricing")
	m.RecordChatReply("pricing")
	m.RecordChatReply("fallback")
	m.RecordReveals(3)
	m.SubscriberAdded()
	m.SubscriberAdded()
	m.SubscriberRemoved()

	out := scrape(t, m)
	assert.Contains(t, out, `startup_os_chat_replies_total{topic="pricing"} 2`)
	assert.Contains(t, out, `startup_os_chat_replies_total{topic="fallback"} 1`)
	assert.Contains(t, out, `startup_os_animation_reveals_total 3`)
	assert.Contains(t, out, `startup_os_event_subscribers 1`)
}

func TestMetricsMiddleware(t *testing.T) {
	m := newTestMetrics(t)

	handler := MetricsMiddleware(m, func(*http.Request) string { return "/api/services" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/services?x=1", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTeapot, w.Code)
	out := scrape(t, m)
	assert.Contains(t, out, `startup_os_http_requests_total{method="GET",path="/api/services",status="418"} 1`)
	assert.Contains(t, out, `startup_os_http_requests_in_flight 0`)
}

func TestMetricsMiddleware_Flush(t *testing.T) {
	m := newTestMetrics(t)

	handler := MetricsMiddleware(m, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		require.True(t, ok)
		f.Flush()
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	assert.True(t, w.Flushed)
	assert.Contains(t, scrape(t, m), `startup_os_http_requests_total{method="GET",path="/api/events",status="200"} 1`)
}
