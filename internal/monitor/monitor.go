package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/baditaflorin/go_startup_os/internal/checker"
	"github.com/baditaflorin/go_startup_os/internal/models"
)

const (
	// DefaultInterval is the auto-refresh period.
	DefaultInterval = 30 * time.Second

	historySize = 5
)

// Monitor polls every registered service and keeps the latest result of each.
type Monitor struct {
	registry *models.Registry
	prober   checker.Prober
	sink     StatusSink
	events   *Broadcaster
	logger   *zap.Logger
	interval time.Duration
	now      func() time.Time

	// ctx is the lifetime context used by timer and background sweeps.
	ctx context.Context

	running atomic.Bool
	sweeps  atomic.Int64

	mu          sync.RWMutex
	states      map[string]models.Status
	results     map[string]models.ProbeResult
	history     map[string][]models.Status
	overall     Overall
	hasOverall  bool
	lastChecked time.Time

	timerMu     sync.Mutex
	timer       *time.Timer
	autoRefresh bool
	generation  uint64
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the auto-refresh period.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithSink adds an extra sink next to the built-in event broadcaster.
func WithSink(s StatusSink) Option {
	return func(m *Monitor) {
		m.sink = append(m.sink.(MultiSink), s)
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// NewMonitor creates a monitor. Every service starts idle.
func NewMonitor(registry *models.Registry, prober checker.Prober, logger *zap.Logger, opts ...Option) *Monitor {
	events := NewBroadcaster()
	m := &Monitor{
		registry: registry,
		prober:   checker.Recover(prober),
		sink:     MultiSink{events},
		events:   events,
		logger:   logger,
		interval: DefaultInterval,
		now:      time.Now,
		ctx:      context.Background(),
		states:   make(map[string]models.Status, registry.Len()),
		results:  make(map[string]models.ProbeResult, registry.Len()),
		history:  make(map[string][]models.Status, registry.Len()),
	}
	for _, svc := range registry.GetAll() {
		m.states[svc.ID] = models.StatusIdle
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run performs an initial sweep, enables auto-refresh when requested and
// blocks until ctx is done.
func (m *Monitor) Run(ctx context.Context, autoRefresh bool) {
	m.timerMu.Lock()
	m.ctx = ctx
	m.timerMu.Unlock()

	m.CheckAll(ctx)
	if autoRefresh {
		m.StartAutoRefresh()
	}

	<-ctx.Done()
	m.StopAutoRefresh()
}

// CheckAll runs one sweep over every service and waits for all probes to
// settle. It returns false without doing anything if a sweep is already
// running.
func (m *Monitor) CheckAll(ctx context.Context) (Overall, bool) {
	if !m.running.CompareAndSwap(false, true) {
		m.logger.Debug("health check already in progress, skipping")
		return Overall{}, false
	}
	defer m.running.Store(false)
	return m.sweep(ctx), true
}

// Trigger starts a sweep in the background. It reports false when one is
// already running or the monitor has stopped.
func (m *Monitor) Trigger() bool {
	ctx := m.lifetime()
	if ctx.Err() != nil {
		return false
	}
	if !m.running.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer m.running.Store(false)
		m.sweep(ctx)
	}()
	return true
}

func (m *Monitor) sweep(ctx context.Context) Overall {
	started := m.now()
	services := m.registry.GetAll()

	m.mu.Lock()
	m.lastChecked = started
	for _, svc := range services {
		m.states[svc.ID] = models.StatusChecking
	}
	m.mu.Unlock()

	m.sink.SetLastChecked(started)
	for _, svc := range services {
		m.sink.SetChecking(svc.ID)
	}

	var wg sync.WaitGroup
	for _, svc := range services {
		wg.Add(1)
		go func(s models.ServiceDescriptor) {
			defer wg.Done()
			res := m.prober.Probe(ctx, s)
			m.store(s.ID, res)
			m.sink.SetStatus(s.ID, res)
		}(svc)
	}
	wg.Wait()

	overall, ok := Summarize(m.latest())
	if ok {
		m.mu.Lock()
		m.overall = overall
		m.hasOverall = true
		m.mu.Unlock()
		m.sink.SetOverall(overall)
	}

	m.sweeps.Add(1)
	m.logger.Info("health check completed",
		zap.Int("services", len(services)),
		zap.String("overall", string(overall.Status)),
		zap.Duration("duration", m.now().Sub(started)),
	)
	return overall
}

func (m *Monitor) store(id string, res models.ProbeResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[id] = res
	m.states[id] = res.Status
	h := append(m.history[id], res.Status)
	if len(h) > historySize {
		h = h[len(h)-historySize:]
	}
	m.history[id] = h
}

func (m *Monitor) latest() []models.ProbeResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]models.ProbeResult, 0, len(m.results))
	for _, svc := range m.registry.GetAll() {
		if res, ok := m.results[svc.ID]; ok {
			list = append(list, res)
		}
	}
	return list
}

// StartAutoRefresh arms the repeating sweep timer. Calling it while enabled
// is a no-op.
func (m *Monitor) StartAutoRefresh() {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	if m.autoRefresh {
		return
	}
	m.autoRefresh = true
	m.generation++
	m.arm(m.generation)
	m.logger.Info("auto-refresh enabled", zap.Duration("interval", m.interval))
}

// StopAutoRefresh cancels the pending timer. A sweep already in flight is
// left to finish.
func (m *Monitor) StopAutoRefresh() {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	if !m.autoRefresh {
		return
	}
	m.autoRefresh = false
	m.generation++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.logger.Info("auto-refresh disabled")
}

// AutoRefresh reports whether the timer is enabled.
func (m *Monitor) AutoRefresh() bool {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	return m.autoRefresh
}

// arm must be called with timerMu held.
func (m *Monitor) arm(gen uint64) {
	m.timer = time.AfterFunc(m.interval, func() { m.tick(gen) })
}

func (m *Monitor) tick(gen uint64) {
	m.timerMu.Lock()
	if !m.autoRefresh || gen != m.generation {
		m.timerMu.Unlock()
		return
	}
	m.arm(gen)
	ctx := m.ctx
	m.timerMu.Unlock()

	if ctx.Err() != nil {
		return
	}
	m.CheckAll(ctx)
}

func (m *Monitor) lifetime() context.Context {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	return m.ctx
}

// Stopped reports whether the context passed to Run is done.
func (m *Monitor) Stopped() bool {
	return m.lifetime().Err() != nil
}

// Running reports whether a sweep is in progress.
func (m *Monitor) Running() bool {
	return m.running.Load()
}

// Sweeps is the number of completed sweeps.
func (m *Monitor) Sweeps() int64 {
	return m.sweeps.Load()
}

// Events exposes the broadcaster for streaming subscribers.
func (m *Monitor) Events() *Broadcaster {
	return m.events
}

// Subscribe registers a listener for status events.
func (m *Monitor) Subscribe() chan Event {
	return m.events.Subscribe()
}

// Unsubscribe removes a listener.
func (m *Monitor) Unsubscribe(ch chan Event) {
	m.events.Unsubscribe(ch)
}

// Interval is the auto-refresh period.
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// Registry returns the services being monitored.
func (m *Monitor) Registry() *models.Registry {
	return m.registry
}
