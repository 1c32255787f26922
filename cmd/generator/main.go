// Command generator writes the built-in service registry as a YAML file that
// can be edited and passed back through monitor.services_file.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/baditaflorin/go_startup_os/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		out     string
		baseURL string
	)

	cmd := &cobra.Command{
		Use:           "generator",
		Short:         "Write the built-in service registry as YAML",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := generate(out, baseURL); err != nil {
				return fmt.Errorf("failed to generate services file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "config/services.yaml", "where to write the registry")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "origin to prefix page URLs with; empty keeps them relative")
	return cmd
}

func generate(path, baseURL string) error {
	content, err := config.MarshalServices(config.DefaultServices(baseURL))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o644)
}
