package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/baditaflorin/go_startup_os/internal/checker"
	"github.com/baditaflorin/go_startup_os/internal/models"
)

func newRegistry(t *testing.T, ids ...string) *models.Registry {
	t.Helper()
	services := make([]models.ServiceDescriptor, 0, len(ids))
	for _, id := range ids {
		services = append(services, models.ServiceDescriptor{
			ID:       id,
			URL:      "https://api.startup-os.com/" + id + "/health",
			Category: models.CategoryAPI,
			Mode:     models.ModeSimulated,
		})
	}
	r, err := models.NewRegistry(services...)
	require.NoError(t, err)
	return r
}

// fixedProber answers from a status table and counts calls.
type fixedProber struct {
	statuses map[string]models.Status
	calls    atomic.Int64
}

func (p *fixedProber) Probe(_ context.Context, svc models.ServiceDescriptor) models.ProbeResult {
	p.calls.Add(1)
	st, ok := p.statuses[svc.ID]
	if !ok {
		st = models.StatusHealthy
	}
	return models.ProbeResult{Status: st, LatencyMs: 42, CheckedAt: time.Now()}
}

// gateProber blocks every probe until release is closed.
type gateProber struct {
	started chan string
	release chan struct{}
	status  models.Status
}

func newGateProber(status models.Status) *gateProber {
	return &gateProber{
		started: make(chan string, 16),
		release: make(chan struct{}),
		status:  status,
	}
}

func (p *gateProber) Probe(_ context.Context, svc models.ServiceDescriptor) models.ProbeResult {
	p.started <- svc.ID
	<-p.release
	return models.ProbeResult{Status: p.status, CheckedAt: time.Now()}
}

type recordingSink struct {
	mu       sync.Mutex
	calls    []string
	overalls []Overall
}

func (r *recordingSink) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recordingSink) SetLastChecked(time.Time) { r.add("last_checked") }
func (r *recordingSink) SetChecking(id string) { r.add("checking:" + id) }
func (r *recordingSink) SetStatus(id string, res models.ProbeResult) {
	r.add("status:" + id + ":" + string(res.Status))
}
func (r *recordingSink) SetOverall(o Overall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overalls = append(r.overalls, o)
}

func TestCheckAll_Scenario(t *testing.T) {
	registry := newRegistry(t, "api-auth", "api-tasks", "api-people")
	prober := &fixedProber{statuses: map[string]models.Status{
		"api-people": models.StatusDegraded,
	}}
	m := NewMonitor(registry, prober, zap.NewNop())

	overall, ran := m.CheckAll(context.Background())

	require.True(t, ran)
	assert.Equal(t, models.StatusDegraded, overall.Status)
	assert.Equal(t, "1 service degraded, 2 healthy", overall.Message)
	assert.Equal(t, 3, overall.Total)

	stored, ok := m.Overall()
	require.True(t, ok)
	assert.Equal(t, overall, stored)
	assert.False(t, m.LastChecked().IsZero())
	assert.False(t, m.Running())
}

func TestCheckAll_EveryServiceSettled(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	registry := newRegistry(t, ids...)
	prober := &fixedProber{statuses: map[string]models.Status{
		"b": models.StatusError,
		"d": models.StatusDegraded,
	}}
	m := NewMonitor(registry, prober, zap.NewNop())

	for _, st := range m.Services() {
		assert.Equal(t, models.StatusIdle, st.State)
		assert.Nil(t, st.Result)
	}

	overall, ran := m.CheckAll(context.Background())
	require.True(t, ran)
	assert.Equal(t, models.StatusError, overall.Status)
	assert.Equal(t, "1 service down, 1 degraded", overall.Message)

	for _, st := range m.Services() {
		require.NotNil(t, st.Result, st.ID)
		assert.True(t, st.Result.Status.Settled(), st.ID)
		assert.Equal(t, st.Result.Status, st.State)
	}
}

func TestCheckAll_SequentialSweepsReplaceResults(t *testing.T) {
	registry := newRegistry(t, "a", "b")
	prober := &fixedProber{}
	m := NewMonitor(registry, prober, zap.NewNop())

	for i := 0; i < 7; i++ {
		_, ran := m.CheckAll(context.Background())
		require.True(t, ran)
	}

	services := m.Services()
	require.Len(t, services, 2)
	for _, st := range services {
		require.NotNil(t, st.Result)
		assert.Len(t, st.History, historySize, "history is capped")
	}
	assert.Equal(t, int64(14), prober.calls.Load())
	assert.Equal(t, int64(7), m.Sweeps())

	overall, ok := m.Overall()
	require.True(t, ok)
	assert.Equal(t, 2, overall.Total)
}

func TestCheckAll_PanicDowngradedToError(t *testing.T) {
	registry := newRegistry(t, "good", "bad")
	prober := checker.ProberFunc(func(_ context.Context, svc models.ServiceDescriptor) models.ProbeResult {
		if svc.ID == "bad" {
			panic("malformed descriptor")
		}
		return models.ProbeResult{Status: models.StatusHealthy}
	})
	m := NewMonitor(registry, prober, zap.NewNop())

	overall, ran := m.CheckAll(context.Background())
	require.True(t, ran)
	assert.Equal(t, models.StatusError, overall.Status)

	bad, ok := m.Result("bad")
	require.True(t, ok)
	assert.Equal(t, models.StatusError, bad.Status)
	assert.Contains(t, bad.Error, "malformed descriptor")

	good, ok := m.Result("good")
	require.True(t, ok)
	assert.Equal(t, models.StatusHealthy, good.Status)
}

func TestCheckAll_NoOverlappingSweeps(t *testing.T) {
	registry := newRegistry(t, "a", "b")
	prober := newGateProber(models.StatusHealthy)
	m := NewMonitor(registry, prober, zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.CheckAll(context.Background())
	}()

	// Both probes are launched before either settles.
	<-prober.started
	<-prober.started
	assert.True(t, m.Running())

	_, ran := m.CheckAll(context.Background())
	assert.False(t, ran)
	assert.False(t, m.Trigger())

	close(prober.release)
	<-done
	assert.False(t, m.Running())
	assert.Equal(t, int64(1), m.Sweeps())
}

func TestCheckAll_InFlightKeepsPreviousResult(t *testing.T) {
	registry := newRegistry(t, "a")
	first := &fixedProber{statuses: map[string]models.Status{"a": models.StatusDegraded}}
	gate := newGateProber(models.StatusHealthy)

	var useGate atomic.Bool
	prober := checker.ProberFunc(func(ctx context.Context, svc models.ServiceDescriptor) models.ProbeResult {
		if useGate.Load() {
			return gate.Probe(ctx, svc)
		}
		return first.Probe(ctx, svc)
	})
	m := NewMonitor(registry, prober, zap.NewNop())

	m.CheckAll(context.Background())
	useGate.Store(true)

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.CheckAll(context.Background())
	}()
	<-gate.started

	st, ok := m.Service("a")
	require.True(t, ok)
	assert.Equal(t, models.StatusChecking, st.State)
	require.NotNil(t, st.Result)
	assert.Equal(t, models.StatusDegraded, st.Result.Status)

	close(gate.release)
	<-done

	res, ok := m.Result("a")
	require.True(t, ok)
	assert.Equal(t, models.StatusHealthy, res.Status)
}

func TestCheckAll_SinkOrdering(t *testing.T) {
	registry := newRegistry(t, "a", "b")
	sink := &recordingSink{}
	m := NewMonitor(registry, &fixedProber{}, zap.NewNop(), WithSink(sink))

	m.CheckAll(context.Background())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.calls, 5)
	assert.Equal(t, "last_checked", sink.calls[0])
	assert.ElementsMatch(t, []string{"checking:a", "checking:b"}, sink.calls[1:3])
	assert.ElementsMatch(t, []string{"status:a:healthy", "status:b:healthy"}, sink.calls[3:5])
	require.Len(t, sink.overalls, 1)
	assert.Equal(t, "All systems operational (2 services)", sink.overalls[0].Message)
}

func TestCheckAll_EmptyRegistry(t *testing.T) {
	m := NewMonitor(newRegistry(t), &fixedProber{}, zap.NewNop())

	_, ran := m.CheckAll(context.Background())
	assert.True(t, ran)

	_, ok := m.Overall()
	assert.False(t, ok)
}

func TestTrigger(t *testing.T) {
	registry := newRegistry(t, "a")
	m := NewMonitor(registry, &fixedProber{}, zap.NewNop())

	require.True(t, m.Trigger())
	assert.Eventually(t, func() bool { return m.Sweeps() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, m.AutoRefresh())
}

func TestTrigger_AfterRunStops(t *testing.T) {
	registry := newRegistry(t, "a")
	m := NewMonitor(registry, &fixedProber{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(ctx, false)
	}()
	require.Eventually(t, func() bool { return m.Sweeps() == 1 }, time.Second, 5*time.Millisecond)
	before, ok := m.Result("a")
	require.True(t, ok)

	cancel()
	<-done
	assert.True(t, m.Stopped())

	assert.False(t, m.Trigger())
	assert.False(t, m.Running())
	after, ok := m.Result("a")
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.Equal(t, int64(1), m.Sweeps())
}

func TestAutoRefresh(t *testing.T) {
	registry := newRegistry(t, "a")
	prober := &fixedProber{}
	m := NewMonitor(registry, prober, zap.NewNop(), WithInterval(10*time.Millisecond))

	m.StartAutoRefresh()
	m.StartAutoRefresh()
	assert.True(t, m.AutoRefresh())
	assert.Eventually(t, func() bool { return m.Sweeps() >= 2 }, time.Second, 5*time.Millisecond)

	m.StopAutoRefresh()
	assert.False(t, m.AutoRefresh())
	// Let a tick that fired just before the stop finish its sweep.
	time.Sleep(20 * time.Millisecond)
	assert.Eventually(t, func() bool { return !m.Running() }, time.Second, 5*time.Millisecond)

	settled := m.Sweeps()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, m.Sweeps())
}

func TestAutoRefresh_StopBeforeFirstTick(t *testing.T) {
	registry := newRegistry(t, "a")
	m := NewMonitor(registry, &fixedProber{}, zap.NewNop(), WithInterval(20*time.Millisecond))

	m.StartAutoRefresh()
	m.StopAutoRefresh()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int64(0), m.Sweeps())

	// A manual run still works while the timer is off.
	_, ran := m.CheckAll(context.Background())
	assert.True(t, ran)
	assert.Equal(t, int64(1), m.Sweeps())
}

func TestRun(t *testing.T) {
	registry := newRegistry(t, "a")
	m := NewMonitor(registry, &fixedProber{}, zap.NewNop(), WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(ctx, true)
	}()

	assert.Eventually(t, func() bool { return m.Sweeps() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.False(t, m.AutoRefresh())
}

func TestSubscribe(t *testing.T) {
	registry := newRegistry(t, "a")
	m := NewMonitor(registry, &fixedProber{}, zap.NewNop())

	ch := m.Subscribe()
	assert.Equal(t, 1, m.Events().Subscribers())

	m.CheckAll(context.Background())

	var types []string
	for len(types) < 4 {
		select {
		case ev := <-ch:
			types = append(types, ev.Type)
		case <-time.After(time.Second):
			t.Fatalf("timed out, got %v", types)
		}
	}
	assert.Equal(t, []string{EventSweepStarted, EventChecking, EventStatus, EventOverall}, types)

	m.Unsubscribe(ch)
	assert.Equal(t, 0, m.Events().Subscribers())
	_, open := <-ch
	assert.False(t, open)

	// Unsubscribing twice is harmless.
	m.Unsubscribe(ch)
}
