package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	mcpserver "github.com/ericfisherdev/reviewrelay/internal/adapter/driving/mcp"
	"github.com/ericfisherdev/reviewrelay/internal/application"
	"github.com/ericfisherdev/reviewrelay/internal/config"
)

func newMCPCmd() *cobra.Command {
	var (
		workDir     string
		clientName  string
		waitDB      uint64
		recheckEach time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve review comments to a coding agent over MCP stdio",
		Long: "Runs an MCP server on stdin/stdout for one agent process. Comments are looked up " +
			"for the working directory, and subscribers are notified when new comments are sent.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd, workDir, clientName, waitDB, recheckEach)
		},
	}

	cmd.Flags().StringVar(&workDir, "dir", "", "working directory the agent operates in (default: current directory)")
	cmd.Flags().StringVar(&clientName, "client-name", "", "display name recorded for this agent")
	cmd.Flags().Uint64Var(&waitDB, "wait-db", 0, "retry opening the database this many times before giving up")
	cmd.Flags().DurationVar(&recheckEach, "recheck", 5*time.Second, "how often to look for a signal file that does not exist yet")
	return cmd
}

func runMCP(cmd *cobra.Command, workDir, clientName string, waitDB uint64, recheck time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// stdout carries the protocol.
	logger := setupLogger(cfg, cmd.ErrOrStderr())

	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
	}
	if workDir, err = filepath.Abs(workDir); err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}
	if clientName == "" {
		clientName = cfg.ClientName
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, logger, openOptions{waitAttempts: waitDB, waitInterval: time.Second})
	if err != nil {
		return err
	}
	defer a.Close()

	tracker := application.NewClientTracker(a.clientStore, clientName, workDir)
	server := mcpserver.NewServer(a.agent, a.signals, tracker, a.repoStore, Version, logger)
	server.SetRecheckInterval(recheck)

	logger.Info("mcp server starting", "working_dir", workDir, "version", Version)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, ctx.Err()) {
		return fmt.Errorf("mcp server: %w", err)
	}
	logger.Info("mcp server stopped")
	return nil
}
