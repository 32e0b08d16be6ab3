package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

// SignalService keeps each working directory's signal file in line with the
// pending comment count of its repository's active session. The database is
// authoritative; the file is only a hint for watcher processes.
type SignalService struct {
	repoStore    driven.RepoStore
	sessionStore driven.SessionStore
	commentStore driven.CommentStore
	signalStore  driven.SignalStore
	now          func() time.Time
}

// NewSignalService creates a new SignalService with the required dependencies.
func NewSignalService(
	repoStore driven.RepoStore,
	sessionStore driven.SessionStore,
	commentStore driven.CommentStore,
	signalStore driven.SignalStore,
) *SignalService {
	return &SignalService{
		repoStore:    repoStore,
		sessionStore: sessionStore,
		commentStore: commentStore,
		signalStore:  signalStore,
		now:          time.Now,
	}
}

// Recompute rewrites the signal file for repoPath from current database
// state. With nothing pending the file is removed and nil is returned;
// otherwise the written record is returned. createdAt is carried over from
// an existing file so the stale sweep measures from the first write.
func (s *SignalService) Recompute(ctx context.Context, repoPath, remoteURL string) (*model.SignalRecord, error) {
	sessionID, pending, err := s.pendingFor(ctx, repoPath)
	if err != nil {
		return nil, err
	}

	if pending == 0 {
		if err := s.signalStore.Remove(ctx, repoPath, remoteURL); err != nil {
			return nil, &CoordinationError{Op: "remove signal file", Err: err}
		}
		return nil, nil
	}

	createdAt := s.now().UTC()
	prior, err := s.signalStore.Read(ctx, repoPath, remoteURL)
	if err != nil {
		// An unreadable file is replaced; its createdAt is lost.
		slog.Debug("discarding unreadable signal file", "repo_path", repoPath, "error", err)
	} else if prior != nil && !prior.CreatedAt.IsZero() {
		createdAt = prior.CreatedAt
	}

	rec := model.SignalRecord{
		RepoPath:     repoPath,
		SessionID:    sessionID,
		PendingCount: pending,
		CreatedAt:    createdAt,
		RemoteURL:    remoteURL,
	}
	if err := s.signalStore.Write(ctx, rec); err != nil {
		return nil, &CoordinationError{Op: "write signal file", Err: err}
	}
	return &rec, nil
}

// RecomputeForSession refreshes the signal files of every path registered to
// the repository owning sessionID.
func (s *SignalService) RecomputeForSession(ctx context.Context, sessionID int64) error {
	session, err := s.sessionStore.Get(ctx, sessionID)
	if err != nil {
		return storageErr("get session", err)
	}
	if session == nil {
		return fmt.Errorf("recompute signals: session %d: %w", sessionID, driven.ErrSessionNotFound)
	}
	return s.RecomputeForRepo(ctx, session.RepoID)
}

// RecomputeForRepo refreshes the signal files of every path of a repository.
func (s *SignalService) RecomputeForRepo(ctx context.Context, repoID int64) error {
	repo, err := s.repoStore.Get(ctx, repoID)
	if err != nil {
		return storageErr("get repository", err)
	}
	if repo == nil {
		return fmt.Errorf("recompute signals: repository %d: %w", repoID, driven.ErrRepoNotFound)
	}

	paths, err := s.repoStore.ListPaths(ctx, repoID)
	if err != nil {
		return storageErr("list repository paths", err)
	}

	var errs []error
	for _, p := range paths {
		if _, err := s.Recompute(ctx, p.Path, repo.RemoteURL); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Notify runs RecomputeForSession after a comment mutation. Failures are
// logged and dropped so the committed mutation stands.
func (s *SignalService) Notify(ctx context.Context, sessionIDs ...int64) {
	for _, id := range sessionIDs {
		if err := s.RecomputeForSession(ctx, id); err != nil {
			slog.Warn("signal recompute failed", "session_id", id, "error", err)
		}
	}
}

// PathFor returns the signal file location for a working directory.
func (s *SignalService) PathFor(repoPath, remoteURL string) string {
	return s.signalStore.Path(repoPath, remoteURL)
}

// List returns the live signal records, sweeping stale ones first.
func (s *SignalService) List(ctx context.Context) ([]model.SignalRecord, error) {
	records, err := s.signalStore.List(ctx)
	if err != nil {
		return nil, &CoordinationError{Op: "list signal files", Err: err}
	}
	return records, nil
}

func (s *SignalService) pendingFor(ctx context.Context, repoPath string) (int64, int, error) {
	repo, err := s.repoStore.GetByPath(ctx, repoPath)
	if err != nil {
		return 0, 0, storageErr("find repository by path", err)
	}
	if repo == nil {
		return 0, 0, nil
	}

	session, err := s.sessionStore.GetActive(ctx, repo.ID)
	if err != nil {
		return 0, 0, storageErr("find active session", err)
	}
	if session == nil {
		return 0, 0, nil
	}

	counts, err := s.commentStore.CountsBySession(ctx, session.ID)
	if err != nil {
		return 0, 0, storageErr("count comments", err)
	}
	return session.ID, counts.Pending(), nil
}
