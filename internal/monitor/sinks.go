package monitor

import (
	"time"

	"go.uber.org/zap"

	"github.com/baditaflorin/go_startup_os/internal/models"
)

// StatusSink receives status changes as a sweep progresses. SetChecking and
// SetStatus are called from probe goroutines, so implementations must be
// safe for concurrent use.
type StatusSink interface {
	SetLastChecked(at time.Time)
	SetChecking(id string)
	SetStatus(id string, res models.ProbeResult)
	SetOverall(o Overall)
}

// MultiSink fans every call out to each sink in order.
type MultiSink []StatusSink

func (ms MultiSink) SetLastChecked(at time.Time) {
	for _, s := range ms {
		s.SetLastChecked(at)
	}
}

func (ms MultiSink) SetChecking(id string) {
	for _, s := range ms {
		s.SetChecking(id)
	}
}

func (ms MultiSink) SetStatus(id string, res models.ProbeResult) {
	for _, s := range ms {
		s.SetStatus(id, res)
	}
}

func (ms MultiSink) SetOverall(o Overall) {
	for _, s := range ms {
		s.SetOverall(o)
	}
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) SetLastChecked(time.Time) {}
func (NopSink) SetChecking(string) {}
func (NopSink) SetStatus(string, models.ProbeResult) {}
func (NopSink) SetOverall(Overall) {}

// LogSink writes status changes to a zap logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (l *LogSink) SetLastChecked(at time.Time) {
	l.logger.Debug("health check started", zap.Time("at", at))
}

func (l *LogSink) SetChecking(id string) {
	l.logger.Debug("checking service", zap.String("service", id))
}

func (l *LogSink) SetStatus(id string, res models.ProbeResult) {
	fields := []zap.Field{
		zap.String("service", id),
		zap.String("status", string(res.Status)),
		zap.Int64("latency_ms", res.LatencyMs),
	}
	if res.Metric != nil {
		fields = append(fields, zap.String("metric", res.Metric.String()))
	}
	if res.Error != "" {
		fields = append(fields, zap.String("error", res.Error))
		l.logger.Warn("service check failed", fields...)
		return
	}
	l.logger.Debug("service checked", fields...)
}

func (l *LogSink) SetOverall(o Overall) {
	l.logger.Info("overall status",
		zap.String("status", string(o.Status)),
		zap.String("message", o.Message),
		zap.Int("healthy", o.Healthy),
		zap.Int("degraded", o.Degraded),
		zap.Int("errors", o.Errors),
	)
}
