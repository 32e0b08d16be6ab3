package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httphandler "github.com/ericfisherdev/reviewrelay/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/reviewrelay/internal/adapter/driving/web"
	"github.com/ericfisherdev/reviewrelay/internal/config"
)

func newServeCmd() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the review UI and JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, listenAddr)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides REVIEWRELAY_LISTEN_ADDR)")
	return cmd
}

func runServe(cmd *cobra.Command, listenAddr string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	logger := setupLogger(cfg, cmd.ErrOrStderr())
	logger.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"signal_dir", cfg.SignalDir,
		"sweep_schedule", cfg.SweepSchedule,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, logger, openOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	sweepErr := make(chan error, 1)
	go func() {
		sweepErr <- a.sweeper.Start(ctx)
	}()

	apiHandler := httphandler.NewHandler(a.comments, a.agent, a.signals, a.registration, a.repoStore, a.sessionStore, logger)
	webHandler := webhandler.NewHandler(a.comments, a.repoStore, a.sessionStore, logger)

	mux := http.NewServeMux()
	apiHandler.RegisterRoutes(mux)
	webhandler.RegisterRoutes(mux, webHandler)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.Wrap(mux, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	logger.Info("reviewrelay started", "listen_addr", cfg.ListenAddr, "version", Version)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case err := <-sweepErr:
		if err != nil {
			return err
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
