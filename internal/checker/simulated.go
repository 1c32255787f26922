package checker

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/baditaflorin/go_startup_os/internal/models"
)

// Simulation parameters.
const (
	SimMinDelay  = 50 * time.Millisecond
	SimDelaySpan = 500 * time.Millisecond

	healthyCutoff  = 0.90
	degradedCutoff = 0.98
)

// Rand is the random source used for simulated probes. Float64 must return
// values in [0, 1).
type Rand interface {
	Float64() float64
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the real Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// LockedRand makes a non thread-safe source usable from concurrent probes.
type LockedRand struct {
	mu  sync.Mutex
	src Rand
}

// NewLockedRand wraps src.
func NewLockedRand(src Rand) *LockedRand {
	return &LockedRand{src: src}
}

func (l *LockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

// SimulatedProber fabricates results for services that cannot be reached.
type SimulatedProber struct {
	rand  Rand
	sleep Sleeper
}

// NewSimulatedProber creates a prober. nil arguments select the process-wide
// random source and a real sleep.
func NewSimulatedProber(r Rand, sleep Sleeper) *SimulatedProber {
	if r == nil {
		r = globalRand{}
	}
	if sleep == nil {
		sleep = SleepContext
	}
	return &SimulatedProber{rand: r, sleep: sleep}
}

// Probe implements Prober. Draws, in order: delay, status, metric.
func (p *SimulatedProber) Probe(ctx context.Context, svc models.ServiceDescriptor) models.ProbeResult {
	delay := SimMinDelay + time.Duration(p.rand.Float64()*float64(SimDelaySpan))
	// Interrupted only at shutdown; nothing was contacted.
	if err := p.sleep(ctx, delay); err != nil {
		return failure(&ProbeError{Kind: ErrProbeException, Err: err}, 0)
	}
	latency := delay.Round(time.Millisecond).Milliseconds()

	var err error
	switch draw := p.rand.Float64(); {
	case draw < healthyCutoff:
	case draw < degradedCutoff:
		err = &ProbeError{Kind: ErrSimulatedDegraded}
	default:
		err = &ProbeError{Kind: ErrSimulatedError}
	}

	res := models.ProbeResult{
		Status:    Classify(err),
		LatencyMs: latency,
		Metric:    p.metric(svc.Metric),
		CheckedAt: now(),
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// metric synthesizes the figure keyed on the descriptor's metric kind.
func (p *SimulatedProber) metric(kind models.MetricKind) *models.Metric {
	switch kind {
	case models.MetricConnections:
		return &models.Metric{Kind: kind, Value: math.Floor(p.rand.Float64()*30) + 10}
	case models.MetricMemory:
		return &models.Metric{Kind: kind, Value: tenths(p.rand.Float64()*200 + 50)}
	case models.MetricStorage:
		return &models.Metric{Kind: kind, Value: tenths(p.rand.Float64()*50 + 10)}
	}
	return nil
}

// tenths truncates to one decimal so the value stays inside its half-open range.
func tenths(v float64) float64 {
	return math.Floor(v*10) / 10
}
