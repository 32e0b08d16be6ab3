// Package mcpserver exposes the agent query surface as an MCP stdio server.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ericfisherdev/reviewrelay/internal/adapter/driven/signalfile"
	"github.com/ericfisherdev/reviewrelay/internal/application"
	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

const (
	// PendingURI is the resource listing the working directory's
	// undelivered comments.
	PendingURI = "reviewrelay://pending"

	defaultRecheck = 5 * time.Second
)

// Server is the MCP driving adapter. One Server serves one agent process.
type Server struct {
	agent     *application.AgentService
	signals   *application.SignalService
	tracker   *application.ClientTracker
	repoStore driven.RepoStore
	logger    *slog.Logger
	recheck   time.Duration

	mcp *mcp.Server
}

// NewServer creates a Server and registers its tools and resources.
func NewServer(
	agent *application.AgentService,
	signals *application.SignalService,
	tracker *application.ClientTracker,
	repoStore driven.RepoStore,
	version string,
	logger *slog.Logger,
) *Server {
	s := &Server{
		agent:     agent,
		signals:   signals,
		tracker:   tracker,
		repoStore: repoStore,
		logger:    logger,
		recheck:   defaultRecheck,
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "reviewrelay",
		Version: version,
	}, &mcp.ServerOptions{
		Instructions: "Review comments written in the reviewrelay UI for this working directory. " +
			"Call check_comments to receive new comments, then resolve_comment once each is addressed.",
		InitializedHandler: s.onInitialized,
		SubscribeHandler: func(_ context.Context, req *mcp.SubscribeRequest) error {
			s.logger.Debug("resource subscribed", "uri", req.Params.URI)
			return nil
		},
		UnsubscribeHandler: func(_ context.Context, req *mcp.UnsubscribeRequest) error {
			s.logger.Debug("resource unsubscribed", "uri", req.Params.URI)
			return nil
		},
	})

	s.registerTools()
	s.mcp.AddResource(&mcp.Resource{
		URI:         PendingURI,
		Name:        "pending",
		Description: "Review comments sent for this working directory that no agent has received yet.",
		MIMEType:    "text/plain",
	}, s.readPending)

	return s
}

// SetRecheckInterval changes how often the watcher looks for a signal file
// that does not exist yet.
func (s *Server) SetRecheckInterval(d time.Duration) {
	if d > 0 {
		s.recheck = d
	}
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Run serves the protocol on transport and watches the working directory's
// signal file until the client disconnects or ctx is canceled.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.WatchSignals(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("signal watcher stopped", "error", err)
		}
	}()

	err := s.mcp.Run(ctx, transport)
	cancel()
	wg.Wait()
	return err
}

// WatchSignals follows the signal file of the working directory and sends a
// resource-updated notification whenever new comments are signalled. Until
// the directory is registered it re-checks periodically. A signal file that
// is already there when watching starts counts as known to the agent, unless
// the directory was registered after the server came up.
func (s *Server) WatchSignals(ctx context.Context) error {
	ticker := time.NewTicker(s.recheck)
	defer ticker.Stop()

	registeredLate := false
	for {
		path, err := s.signalPath(ctx)
		if err != nil {
			s.logger.Debug("signal path unavailable", "error", err)
		}
		if path != "" {
			return signalfile.Follow(ctx, path, s.recheck, registeredLate, func(rec model.SignalRecord) {
				s.onSignal(ctx, rec)
			}, s.logger)
		}
		registeredLate = true

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Server) signalPath(ctx context.Context) (string, error) {
	dir := s.tracker.WorkingDir()
	repo, err := s.repoStore.GetByPath(ctx, dir)
	if err != nil {
		return "", fmt.Errorf("look up repository for %s: %w", dir, err)
	}
	if repo == nil {
		return "", nil
	}
	return s.signals.PathFor(dir, repo.RemoteURL), nil
}

func (s *Server) onSignal(ctx context.Context, rec model.SignalRecord) {
	s.logger.Info("new review comments signalled",
		"repo_path", rec.RepoPath,
		"pending_count", rec.PendingCount,
		"session_id", rec.SessionID,
	)
	if err := s.mcp.ResourceUpdated(ctx, &mcp.ResourceUpdatedNotificationParams{URI: PendingURI}); err != nil {
		s.logger.Warn("resource update notification failed", "error", err)
	}
}

func (s *Server) onInitialized(_ context.Context, req *mcp.InitializedRequest) {
	params := req.Session.InitializeParams()
	if params == nil || params.ClientInfo == nil {
		return
	}
	s.tracker.SetClientName(params.ClientInfo.Name)
}

func (s *Server) readPending(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	res, groups, err := s.agent.ListRepoPending(ctx, s.tracker.WorkingDir())

	var text string
	switch {
	case err == nil:
		text = application.FormatRepoPending(res, groups)
	case application.Remedy(err) != "":
		text = application.Remedy(err)
	default:
		s.logger.Error("read pending resource failed", "error", err)
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     text,
		}},
	}, nil
}

// repoPath resolves an optional tool argument against the working directory.
func (s *Server) repoPath(arg string) string {
	if arg == "" {
		return s.tracker.WorkingDir()
	}
	if !filepath.IsAbs(arg) {
		return filepath.Join(s.tracker.WorkingDir(), arg)
	}
	return filepath.Clean(arg)
}
