package driven

import (
	"context"
	"errors"
)

// ErrNotGitCheckout is returned when a path is not inside a git working tree.
var ErrNotGitCheckout = errors.New("not a git checkout")

// CheckoutInfo describes a local git checkout.
type CheckoutInfo struct {
	Toplevel  string
	RemoteURL string // origin URL, empty when no origin remote exists.
	Branch    string // empty when HEAD is detached.
}

// GitInspector reads metadata from a local git checkout.
type GitInspector interface {
	Inspect(ctx context.Context, path string) (*CheckoutInfo, error)
}

// RepoMetadataClient resolves hosted repository metadata from a remote URL.
type RepoMetadataClient interface {
	// DefaultBranch returns the hosted default branch for the repository the
	// remote URL points at. It returns "", nil when the remote is not hosted
	// by the provider.
	DefaultBranch(ctx context.Context, remoteURL string) (string, error)
}
