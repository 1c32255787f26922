package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/baditaflorin/go_startup_os/internal/config"
	"github.com/baditaflorin/go_startup_os/internal/models"
	"github.com/baditaflorin/go_startup_os/internal/monitor"
)

// errUnhealthy makes the process exit non-zero without printing an error;
// the table already says what is down.
var errUnhealthy = errors.New("one or more services are down")

func newCheckCommand(configPath *string) *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one health check sweep and print the results",
		Long:  "Runs every probe once, prints a table and exits 1 when the overall status is error.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if baseURL != "" {
				cfg.Monitor.BaseURL = baseURL
			}
			registry, err := config.LoadServices(cfg.Monitor.ServicesFile, cfg.Monitor.BaseURL, logger)
			if err != nil {
				return err
			}

			table := monitor.NewTableSink(cmd.OutOrStdout(), registry.GetAll())
			return runCheck(cmd.Context(), newMonitor(cfg, registry, logger, monitor.WithSink(table)))
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "origin the page probes fetch from (overrides monitor.base_url)")
	return cmd
}

func runCheck(ctx context.Context, mon *monitor.Monitor) error {
	overall, _ := mon.CheckAll(ctx)
	if overall.Status == models.StatusError {
		return errUnhealthy
	}
	return nil
}
