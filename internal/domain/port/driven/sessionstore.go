package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
)

// ErrSessionNotFound indicates a repository has no review session yet.
var ErrSessionNotFound = errors.New("review session not found")

// SessionStore defines the driven port for review session persistence.
// Lookups return nil, nil when nothing matches.
type SessionStore interface {
	Create(ctx context.Context, repoID int64, branch string) (*model.ReviewSession, error)
	Get(ctx context.Context, id int64) (*model.ReviewSession, error)

	// GetActive returns the most recently created session of the repository.
	GetActive(ctx context.Context, repoID int64) (*model.ReviewSession, error)
	ListByRepo(ctx context.Context, repoID int64) ([]model.ReviewSession, error)
}
