package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "server",
		Short:         "StartUp OS site backend",
		Long:          "Serves the marketing pages, the chat responder API and the live service status monitor.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default ./config.yaml or ./config/config.yaml)")

	root.AddCommand(newServeCommand(&configPath))
	root.AddCommand(newCheckCommand(&configPath))
	root.AddCommand(newAskCommand(&configPath))
	root.AddCommand(newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
