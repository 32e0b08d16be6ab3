package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	githubadapter "github.com/ericfisherdev/reviewrelay/internal/adapter/driven/github"
	"github.com/ericfisherdev/reviewrelay/internal/adapter/driven/gitrepo"
	"github.com/ericfisherdev/reviewrelay/internal/adapter/driven/signalfile"
	sqliteadapter "github.com/ericfisherdev/reviewrelay/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reviewrelay/internal/application"
	"github.com/ericfisherdev/reviewrelay/internal/config"
	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

// app is the wired composition root shared by the subcommands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteadapter.DB

	repoStore     *sqliteadapter.RepoRepo
	sessionStore  *sqliteadapter.SessionRepo
	commentStore  *sqliteadapter.CommentRepo
	deliveryStore *sqliteadapter.DeliveryRepo
	clientStore   *sqliteadapter.ClientRepo
	signalStore   *signalfile.Store

	signals      *application.SignalService
	comments     *application.CommentService
	deliveries   *application.DeliveryService
	agent        *application.AgentService
	registration *application.RegistrationService
	sweeper      *application.SweepService
}

// openOptions tunes how the database is opened.
type openOptions struct {
	// waitAttempts retries opening the database that many times, one
	// waitInterval apart. Zero means a single attempt.
	waitAttempts uint64
	waitInterval time.Duration
}

// setupLogger installs a text logger on w at the configured level and makes
// it the slog default.
func setupLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return logger
}

func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts openOptions) (*app, error) {
	var db *sqliteadapter.DB
	open := func(ctx context.Context) error {
		var err error
		db, err = sqliteadapter.NewDB(ctx, cfg.DBPath)
		return err
	}

	if opts.waitAttempts > 0 {
		if err := application.WaitReady(ctx, "database", opts.waitAttempts, opts.waitInterval, open); err != nil {
			return nil, err
		}
	} else if err := open(ctx); err != nil {
		return nil, err
	}
	logger.Debug("database opened", "path", cfg.DBPath)

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	a := &app{
		cfg:           cfg,
		logger:        logger,
		db:            db,
		repoStore:     sqliteadapter.NewRepoRepo(db),
		sessionStore:  sqliteadapter.NewSessionRepo(db),
		commentStore:  sqliteadapter.NewCommentRepo(db),
		deliveryStore: sqliteadapter.NewDeliveryRepo(db),
		clientStore:   sqliteadapter.NewClientRepo(db),
		signalStore:   signalfile.NewStore(cfg.SignalDir, cfg.SignalMaxAge, logger),
	}

	a.signals = application.NewSignalService(a.repoStore, a.sessionStore, a.commentStore, a.signalStore)
	a.comments = application.NewCommentService(a.commentStore, a.sessionStore, a.signals)
	a.deliveries = application.NewDeliveryService(a.deliveryStore)
	resolver := application.NewResolver(a.repoStore, a.sessionStore)
	a.agent = application.NewAgentService(resolver, a.comments, a.deliveries, a.signals, a.repoStore, a.sessionStore, a.commentStore)

	var metadata driven.RepoMetadataClient
	if cfg.HasGitHubToken() {
		metadata = githubadapter.NewClient(cfg.GitHubToken, logger)
		logger.Debug("github client created")
	}
	a.registration = application.NewRegistrationService(gitrepo.NewInspector(), metadata, a.repoStore, a.sessionStore, a.signals)
	a.sweeper = application.NewSweepService(a.signalStore, cfg.SweepSchedule)

	return a, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}
