package main

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baditaflorin/go_startup_os/internal/chat"
	"github.com/baditaflorin/go_startup_os/internal/config"
	"github.com/baditaflorin/go_startup_os/internal/metrics"
	"github.com/baditaflorin/go_startup_os/internal/monitor"
	"github.com/baditaflorin/go_startup_os/internal/server"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the status monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	cfg, logger, err := setup(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting StartUp OS", zap.String("version", version))
	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.Server.Port),
		zap.Duration("monitor_interval", cfg.Monitor.Interval),
		zap.String("base_url", cfg.Monitor.BaseURL),
	)

	var (
		m             *metrics.Metrics
		metricsServer *metrics.MetricsServer
		monitorOpts   []monitor.Option
	)
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics(nil)
		monitorOpts = append(monitorOpts, monitor.WithSink(m.Sink()))
		metricsServer = metrics.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, m, logger)
	}

	registry, err := config.LoadServices(cfg.Monitor.ServicesFile, cfg.Monitor.BaseURL, logger)
	if err != nil {
		return err
	}
	mon := newMonitor(cfg, registry, logger, monitorOpts...)
	srv := server.NewServer(cfg, mon, chat.NewResponder(nil), m, version, logger)

	// Listen before the first sweep so the page probes can reach us.
	l, err := net.Listen("tcp", srv.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr(), err)
	}

	errChan := make(chan error, 2)
	go func() {
		if err := srv.Serve(l); err != nil {
			errChan <- err
		}
	}()
	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(); err != nil {
				errChan <- err
			}
		}()
	}

	monCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	monDone := make(chan struct{})
	go func() {
		defer close(monDone)
		mon.Run(monCtx, cfg.Monitor.AutoRefresh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case runErr = <-errChan:
		logger.Error("server error", zap.Error(runErr))
	}

	logger.Info("initiating graceful shutdown")
	stopMonitor()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}

	select {
	case <-monDone:
	case <-shutdownCtx.Done():
		logger.Warn("monitor did not stop before the shutdown deadline")
	}

	logger.Info("shutdown complete")
	return runErr
}
