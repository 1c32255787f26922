package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baditaflorin/go_startup_os/internal/chat"
	"github.com/baditaflorin/go_startup_os/internal/config"
)

func newAskCommand(configPath *string) *cobra.Command {
	var instant bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the chat assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			opts := []chat.WidgetOption{chat.WithDelay(cfg.Chat.MinDelay, cfg.Chat.MaxDelay)}
			if instant {
				opts = append(opts, chat.WithDelay(0, 0))
			}
			w := chat.NewWidget(chat.NewResponder(nil), opts...)
			w.Open()

			reply, err := w.Send(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
			return nil
		},
	}
	cmd.Flags().BoolVar(&instant, "instant", false, "answer without the thinking delay")
	return cmd
}
