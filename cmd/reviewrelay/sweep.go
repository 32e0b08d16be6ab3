package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/reviewrelay/internal/config"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete stale signal files once",
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

			removed, err := a.sweeper.SweepOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d stale signal file(s) from %s\n", removed, a.signalStore.Dir())
			return nil
		},
	}
}
