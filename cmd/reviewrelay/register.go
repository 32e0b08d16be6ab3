package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/reviewrelay/internal/config"
)

func newRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register [path]",
		Short: "Register a git checkout for review",
		Long: "Maps the checkout at path (default: current directory) to a repository and opens a " +
			"review session for its current branch. Worktrees of one remote share a repository.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runRegister(cmd, path)
		},
	}
}

func runRegister(cmd *cobra.Command, path string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg, cmd.ErrOrStderr())

	if path == "" {
		if path, err = os.Getwd(); err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
	}

	a, err := openApp(cmd.Context(), cfg, logger, openOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	reg, err := a.registration.Register(cmd.Context(), path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	verb := "Registered"
	if !reg.CreatedRepo {
		verb = "Updated"
	}
	fmt.Fprintf(out, "%s %s as %s (base %s)\n", verb, reg.Path, reg.Repo.Name, reg.Repo.BaseBranch)
	if reg.CreatedSession {
		fmt.Fprintf(out, "Started review session %d for branch %s\n", reg.Session.ID, reg.Session.Branch)
	} else {
		fmt.Fprintf(out, "Active review session %d for branch %s\n", reg.Session.ID, reg.Session.Branch)
	}
	return nil
}
