// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
)

// Sentinel errors returned by RepoStore implementations.
var (
	// ErrRepoNotFound indicates no repository is registered for the lookup key.
	ErrRepoNotFound = errors.New("repository not found")

	// ErrRepoPathExists indicates the path is already registered to a repository.
	ErrRepoPathExists = errors.New("repository path already registered")
)

// RepoStore defines the driven port for repository and repository path
// persistence. Lookups return nil, nil when nothing matches.
type RepoStore interface {
	Create(ctx context.Context, repo model.Repository) (*model.Repository, error)
	Get(ctx context.Context, id int64) (*model.Repository, error)
	GetByRemoteURL(ctx context.Context, remoteURL string) (*model.Repository, error)
	GetByPath(ctx context.Context, path string) (*model.Repository, error)
	ListAll(ctx context.Context) ([]model.Repository, error)

	// AddPath registers path for the repository. Returns ErrRepoPathExists
	// when the path already belongs to a repository.
	AddPath(ctx context.Context, repoID int64, path string) (*model.RepoPath, error)
	ListPaths(ctx context.Context, repoID int64) ([]model.RepoPath, error)
}
