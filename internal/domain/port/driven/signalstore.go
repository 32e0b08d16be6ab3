package driven

import (
	"context"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
)

// SignalStore defines the driven port for signal files. Implementations
// must replace files atomically so readers never observe partial writes.
type SignalStore interface {
	// Path returns the deterministic signal file location for a repo path.
	Path(repoPath, remoteURL string) string

	// Read returns nil, nil when no signal file exists.
	Read(ctx context.Context, repoPath, remoteURL string) (*model.SignalRecord, error)
	Write(ctx context.Context, rec model.SignalRecord) error
	Remove(ctx context.Context, repoPath, remoteURL string) error

	// List enumerates current signal records, sweeping stale ones first.
	List(ctx context.Context) ([]model.SignalRecord, error)

	// Sweep deletes records older than the store's max age and returns how
	// many were removed.
	Sweep(ctx context.Context) (int, error)
}
