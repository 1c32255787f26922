package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/baditaflorin/go_startup_os/internal/checker"
	"github.com/baditaflorin/go_startup_os/internal/config"
	"github.com/baditaflorin/go_startup_os/internal/models"
	"github.com/baditaflorin/go_startup_os/internal/monitor"
)

// setup loads configuration and builds the logger.
func setup(configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, logger, nil
}

// newMonitor wires the probers and the log sink around registry.
func newMonitor(cfg *config.Config, registry *models.Registry, logger *zap.Logger, opts ...monitor.Option) *monitor.Monitor {
	prober := &checker.Router{
		Real:      checker.NewHTTPProber(nil, cfg.Monitor.ProbeTimeout),
		Simulated: checker.NewSimulatedProber(nil, nil),
	}

	opts = append([]monitor.Option{
		monitor.WithInterval(cfg.Monitor.Interval),
		monitor.WithSink(monitor.NewLogSink(logger)),
	}, opts...)
	return monitor.NewMonitor(registry, prober, logger, opts...)
}
