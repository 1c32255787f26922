package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/baditaflorin/go_startup_os/internal/chat"
	"github.com/baditaflorin/go_startup_os/internal/checker"
	"github.com/baditaflorin/go_startup_os/internal/config"
	"github.com/baditaflorin/go_startup_os/internal/metrics"
	"github.com/baditaflorin/go_startup_os/internal/models"
	"github.com/baditaflorin/go_startup_os/internal/monitor"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 0, IdleTimeout: time.Minute},
		Chat: config.ChatConfig{
			MinDelay:          800 * time.Millisecond,
			MaxDelay:          1200 * time.Millisecond,
			RequestsPerSecond: 0.001,
			BurstSize:         2,
		},
	}
}

func newTestServer(t *testing.T) (*Server, *monitor.Monitor, *metrics.Metrics) {
	t.Helper()
	registry, err := config.LoadServices("", "http://localhost", zap.NewNop())
	require.NoError(t, err)

	prober := checker.ProberFunc(func(context.Context, models.ServiceDescriptor) models.ProbeResult {
		return models.ProbeResult{Status: models.StatusHealthy, LatencyMs: 10}
	})
	mon := monitor.NewMonitor(registry, prober, zap.NewNop())
	m := metrics.NewMetrics(prometheus.NewRegistry())
	return NewServer(testConfig(), mon, chat.NewResponder(nil), m, "test", zap.NewNop()), mon, m
}

func get(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func TestStaticPages(t *testing.T) {
	s, _, _ := newTestServer(t)

	for _, path := range []string{"/", "/index.html", "/features.html", "/pricing.html", "/status.html"} {
		w := get(t, s.Handler(), http.MethodGet, path, "")
		// FileServer redirects /index.html to /.
		assert.Contains(t, []int{http.StatusOK, http.StatusMovedPermanently}, w.Code, path)
	}

	w := get(t, s.Handler(), http.MethodGet, "/features.html", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Six modules")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHealthAndReady(t *testing.T) {
	s, mon, _ := newTestServer(t)

	assert.Equal(t, http.StatusOK, get(t, s.Handler(), http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s.Handler(), http.MethodGet, "/ready", "").Code)

	_, ok := mon.CheckAll(context.Background())
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), http.MethodGet, "/ready", "").Code)
}

func TestAPIRoutes(t *testing.T) {
	s, mon, _ := newTestServer(t)
	mon.CheckAll(context.Background())

	w := get(t, s.Handler(), http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "All systems operational (12 services)")

	w = get(t, s.Handler(), http.MethodGet, "/api/nothing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"error_code":"NOT_FOUND"`)
}

func TestAPIFallbacks(t *testing.T) {
	s, _, _ := newTestServer(t)

	tests := []struct {
		method, path string
		code         int
		errorCode    string
	}{
		{http.MethodDelete, "/api/refresh", http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{http.MethodGet, "/api/refresh", http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{http.MethodPost, "/api/services", http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{http.MethodGet, "/api/unknown/path", http.StatusNotFound, "NOT_FOUND"},
		{http.MethodGet, "/api", http.StatusNotFound, "NOT_FOUND"},
		{http.MethodPost, "/index.html", http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := get(t, s.Handler(), tt.method, tt.path, "")
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Contains(t, w.Body.String(), `"error_code":"`+tt.errorCode+`"`)
		})
	}
}

func TestChatRateLimited(t *testing.T) {
	s, _, _ := newTestServer(t)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, get(t, s.Handler(), http.MethodPost, "/api/chat", `{"message":"what does it cost?"}`).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Other routes share no budget with chat.
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), http.MethodGet, "/api/services", "").Code)
}

func TestMetricsUseRouteTemplates(t *testing.T) {
	s, _, m := newTestServer(t)

	get(t, s.Handler(), http.MethodGet, "/api/services/database", "")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `path="/api/services/{id}"`)
	assert.NotContains(t, w.Body.String(), `path="/api/services/database"`)
}
