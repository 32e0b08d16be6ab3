package application

import (
	"context"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

// Resolution is a working directory mapped to its repository and the
// repository's active review session.
type Resolution struct {
	Repo    model.Repository
	Session model.ReviewSession
}

// Resolver maps working directories to registered repositories.
type Resolver struct {
	repoStore    driven.RepoStore
	sessionStore driven.SessionStore
}

// NewResolver creates a new Resolver with the required dependencies.
func NewResolver(repoStore driven.RepoStore, sessionStore driven.SessionStore) *Resolver {
	return &Resolver{
		repoStore:    repoStore,
		sessionStore: sessionStore,
	}
}

// Resolve looks up the repository registered at exactly path and its most
// recently created session. It fails with *RepoNotFoundError or
// *SessionNotFoundError; neither should be retried.
func (r *Resolver) Resolve(ctx context.Context, path string) (*Resolution, error) {
	repo, err := r.repoStore.GetByPath(ctx, path)
	if err != nil {
		return nil, storageErr("find repository by path", err)
	}
	if repo == nil {
		return nil, &RepoNotFoundError{Path: path}
	}

	session, err := r.sessionStore.GetActive(ctx, repo.ID)
	if err != nil {
		return nil, storageErr("find active session", err)
	}
	if session == nil {
		return nil, &SessionNotFoundError{RepoName: repo.Name}
	}

	return &Resolution{Repo: *repo, Session: *session}, nil
}
