package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMonitor struct {
	sweeps  int64
	running bool
	last    time.Time
}

func (f *fakeMonitor) Sweeps() int64          { return f.sweeps }
func (f *fakeMonitor) Running() bool          { return f.running }
func (f *fakeMonitor) LastChecked() time.Time { return f.last }

func TestLivenessHandler(t *testing.T) {
	hc := NewHealthCheck(&fakeMonitor{}, "1.2.3", zap.NewNop())

	w := httptest.NewRecorder()
	hc.LivenessHandler(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp LivenessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestReadinessHandler(t *testing.T) {
	mon := &fakeMonitor{running: true}
	hc := NewHealthCheck(mon, "dev", zap.NewNop())

	w := httptest.NewRecorder()
	hc.ReadinessHandler(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp ReadinessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "not_ready", resp.Status)

	mon.sweeps = 1
	mon.running = false
	mon.last = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	w = httptest.NewRecorder()
	hc.ReadinessHandler(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "2026-01-02T03:04:05Z", resp.Checks["last_checked"])
}
