package application

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

// FileGroup is a file's comments in display order.
type FileGroup struct {
	FilePath string
	Comments []model.Comment
}

// CommentDetails is a comment together with its delivery history.
type CommentDetails struct {
	Comment    model.Comment
	Deliveries []model.Delivery
}

// CheckResult is what one check_comments call handed to a client.
type CheckResult struct {
	Repo     model.Repository
	Session  model.ReviewSession
	Comments []model.Comment
}

// AgentService is the query surface agent processes use. It combines path
// resolution, the delivery ledger, and signal maintenance.
type AgentService struct {
	resolver     *Resolver
	comments     *CommentService
	deliveries   *DeliveryService
	signals      *SignalService
	repoStore    driven.RepoStore
	sessionStore driven.SessionStore
	commentStore driven.CommentStore
}

// NewAgentService creates a new AgentService with the required dependencies.
func NewAgentService(
	resolver *Resolver,
	comments *CommentService,
	deliveries *DeliveryService,
	signals *SignalService,
	repoStore driven.RepoStore,
	sessionStore driven.SessionStore,
	commentStore driven.CommentStore,
) *AgentService {
	return &AgentService{
		resolver:     resolver,
		comments:     comments,
		deliveries:   deliveries,
		signals:      signals,
		repoStore:    repoStore,
		sessionStore: sessionStore,
		commentStore: commentStore,
	}
}

// Check resolves repoPath, claims the session's sent comments that clientID
// has not received yet, and refreshes the path's signal file.
func (s *AgentService) Check(ctx context.Context, repoPath, clientID string) (*CheckResult, error) {
	res, err := s.resolver.Resolve(ctx, repoPath)
	if err != nil {
		return nil, err
	}

	comments, err := s.deliveries.UndeliveredForClient(ctx, res.Session.ID, clientID)
	if err != nil {
		return nil, err
	}

	if _, err := s.signals.Recompute(ctx, repoPath, res.Repo.RemoteURL); err != nil {
		slog.Warn("signal recompute failed", "repo_path", repoPath, "error", err)
	}

	return &CheckResult{Repo: res.Repo, Session: res.Session, Comments: comments}, nil
}

// CheckComments is Check rendered as agent-facing text.
func (s *AgentService) CheckComments(ctx context.Context, repoPath, clientID string) (string, error) {
	result, err := s.Check(ctx, repoPath, clientID)
	if err != nil {
		return "", err
	}
	return FormatCheckResult(result), nil
}

// ListAllPending summarises every repository whose active session still has
// outstanding comments.
func (s *AgentService) ListAllPending(ctx context.Context) ([]model.RepoSummary, error) {
	repos, err := s.repoStore.ListAll(ctx)
	if err != nil {
		return nil, storageErr("list repositories", err)
	}

	var summaries []model.RepoSummary
	for _, repo := range repos {
		session, err := s.sessionStore.GetActive(ctx, repo.ID)
		if err != nil {
			return nil, storageErr("find active session", err)
		}
		if session == nil {
			continue
		}

		counts, err := s.commentStore.CountsBySession(ctx, session.ID)
		if err != nil {
			return nil, storageErr("count comments", err)
		}
		if counts.Pending() == 0 {
			continue
		}

		undelivered, err := s.commentStore.ListUndelivered(ctx, session.ID)
		if err != nil {
			return nil, storageErr("list undelivered comments", err)
		}

		paths, err := s.repoStore.ListPaths(ctx, repo.ID)
		if err != nil {
			return nil, storageErr("list repository paths", err)
		}
		pathNames := make([]string, 0, len(paths))
		for _, p := range paths {
			pathNames = append(pathNames, p.Path)
		}

		summaries = append(summaries, model.RepoSummary{
			Repo:        repo,
			Paths:       pathNames,
			Session:     *session,
			Counts:      counts,
			Undelivered: len(undelivered),
		})
	}
	return summaries, nil
}

// ListRepoPending groups by file the sent comments of repoPath's active
// session that no client has received yet. It does not record deliveries.
func (s *AgentService) ListRepoPending(ctx context.Context, repoPath string) (*Resolution, []FileGroup, error) {
	res, err := s.resolver.Resolve(ctx, repoPath)
	if err != nil {
		return nil, nil, err
	}

	comments, err := s.commentStore.ListUndelivered(ctx, res.Session.ID)
	if err != nil {
		return nil, nil, storageErr("list undelivered comments", err)
	}
	return res, GroupByFile(comments), nil
}

// GetDetails returns a comment and its delivery history.
func (s *AgentService) GetDetails(ctx context.Context, id int64) (*CommentDetails, error) {
	c, err := s.comments.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	deliveries, err := s.deliveries.Deliveries(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CommentDetails{Comment: *c, Deliveries: deliveries}, nil
}

// MarkResolved resolves a comment on behalf of clientID. Resolving twice
// returns the original resolution.
func (s *AgentService) MarkResolved(ctx context.Context, id int64, clientID string) (*model.Comment, error) {
	by := clientID
	if by == "" {
		by = "agent"
	}
	return s.comments.MarkResolved(ctx, id, by)
}

// GroupByFile splits comments into consecutive per-file groups, keeping the
// input order.
func GroupByFile(comments []model.Comment) []FileGroup {
	var groups []FileGroup
	for _, c := range comments {
		if n := len(groups); n > 0 && groups[n-1].FilePath == c.FilePath {
			groups[n-1].Comments = append(groups[n-1].Comments, c)
			continue
		}
		groups = append(groups, FileGroup{FilePath: c.FilePath, Comments: []model.Comment{c}})
	}
	return groups
}
