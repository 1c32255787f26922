// Package checker probes individual services and classifies the outcome.
package checker

import (
	"context"
	"errors"
	"fmt"

	"github.com/baditaflorin/go_startup_os/internal/models"
)

// Probe failure kinds. A ProbeError wraps exactly one of them.
var (
	ErrTransport         = errors.New("transport failure")
	ErrHTTPDegraded      = errors.New("non-success http status")
	ErrSimulatedDegraded = errors.New("simulated degradation")
	ErrSimulatedError    = errors.New("simulated outage")
	ErrProbeException    = errors.New("probe exception")
)

// ProbeError describes why a probe did not come back healthy.
type ProbeError struct {
	Kind error
	Err  error
}

func (e *ProbeError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ProbeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Classify maps a probe error to the status it produces. nil is healthy.
func Classify(err error) models.Status {
	switch {
	case err == nil:
		return models.StatusHealthy
	case errors.Is(err, ErrHTTPDegraded), errors.Is(err, ErrSimulatedDegraded):
		return models.StatusDegraded
	default:
		return models.StatusError
	}
}

// Prober checks one service. Implementations never return a non-settled status.
type Prober interface {
	Probe(ctx context.Context, svc models.ServiceDescriptor) models.ProbeResult
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, svc models.ServiceDescriptor) models.ProbeResult

func (f ProberFunc) Probe(ctx context.Context, svc models.ServiceDescriptor) models.ProbeResult {
	return f(ctx, svc)
}

// Router dispatches to the prober matching the descriptor's mode.
type Router struct {
	Real      Prober
	Simulated Prober
}

// Probe implements Prober. Unknown modes yield an error result.
func (r *Router) Probe(ctx context.Context, svc models.ServiceDescriptor) models.ProbeResult {
	switch svc.Mode {
	case models.ModeReal:
		if r.Real != nil {
			return r.Real.Probe(ctx, svc)
		}
	case models.ModeSimulated:
		if r.Simulated != nil {
			return r.Simulated.Probe(ctx, svc)
		}
	}
	return failure(&ProbeError{
		Kind: ErrProbeException,
		Err:  fmt.Errorf("no prober for mode %q", svc.Mode),
	}, 0)
}

// Recover wraps p so that a panic inside a probe becomes an error result.
func Recover(p Prober) Prober {
	return ProberFunc(func(ctx context.Context, svc models.ServiceDescriptor) (res models.ProbeResult) {
		defer func() {
			if r := recover(); r != nil {
				res = failure(&ProbeError{Kind: ErrProbeException, Err: fmt.Errorf("%v", r)}, 0)
			}
		}()
		return p.Probe(ctx, svc)
	})
}

func failure(err error, latencyMs int64) models.ProbeResult {
	return models.ProbeResult{
		Status:    Classify(err),
		LatencyMs: latencyMs,
		Error:     err.Error(),
		CheckedAt: now(),
	}
}
