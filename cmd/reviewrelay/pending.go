package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/reviewrelay/internal/application"
	"github.com/ericfisherdev/reviewrelay/internal/config"
)

func newPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Summarise repositories with unresolved review comments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg, cmd.ErrOrStderr())

			a, err := openApp(cmd.Context(), cfg, logger, openOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			summaries, err := a.agent.ListAllPending(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), application.FormatPendingSummary(summaries))
			return nil
		},
	}
}
