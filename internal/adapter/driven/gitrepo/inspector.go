// Package gitrepo reads checkout metadata from local git repositories
// without shelling out to the git binary.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitInspector = (*Inspector)(nil)

// Inspector implements driven.GitInspector using go-git.
type Inspector struct {
	remoteName string
}

// NewInspector creates an Inspector that reports the "origin" remote.
func NewInspector() *Inspector {
	return &Inspector{remoteName: git.DefaultRemoteName}
}

// Inspect opens the checkout containing path and returns its toplevel
// directory, origin URL, and current branch. Linked worktrees are supported.
func (i *Inspector) Inspect(_ context.Context, path string) (*driven.CheckoutInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path %s: %w", path, err)
	}

	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("inspect %s: %w", abs, driven.ErrNotGitCheckout)
	}
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", abs, err)
	}

	wt, err := repo.Worktree()
	if errors.Is(err, git.ErrIsBareRepository) {
		return nil, fmt.Errorf("inspect %s: bare repository: %w", abs, driven.ErrNotGitCheckout)
	}
	if err != nil {
		return nil, fmt.Errorf("open worktree at %s: %w", abs, err)
	}

	info := &driven.CheckoutInfo{Toplevel: filepath.Clean(wt.Filesystem.Root())}

	remote, err := repo.Remote(i.remoteName)
	switch {
	case errors.Is(err, git.ErrRemoteNotFound):
	case err != nil:
		return nil, fmt.Errorf("read remote %s: %w", i.remoteName, err)
	default:
		if urls := remote.Config().URLs; len(urls) > 0 {
			info.RemoteURL = urls[0]
		}
	}

	// Unresolved HEAD so that a branch with no commits yet still reports
	// its name.
	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return nil, fmt.Errorf("read HEAD: %w", err)
	}
	if head.Type() == plumbing.SymbolicReference && head.Target().IsBranch() {
		info.Branch = head.Target().Short()
	}

	return info, nil
}
