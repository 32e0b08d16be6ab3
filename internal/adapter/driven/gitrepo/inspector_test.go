package gitrepo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

func initRepo(t *testing.T, branch string) (string, *git.Repository) {
	t.Helper()

	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(branch)},
	})
	require.NoError(t, err)
	return dir, repo
}

func commitFile(t *testing.T, repo *git.Repository, dir, name string) plumbing.Hash {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)

	hash, err := wt.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash
}

func TestInspect_RemoteAndBranch(t *testing.T) {
	dir, repo := initRepo(t, "feature/login")
	_, err := repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{"git@github.com:acme/app.git"},
	})
	require.NoError(t, err)

	info, err := NewInspector().Inspect(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, dir, info.Toplevel)
	assert.Equal(t, "git@github.com:acme/app.git", info.RemoteURL)
	assert.Equal(t, "feature/login", info.Branch)
}

func TestInspect_FromSubdirectory(t *testing.T) {
	dir, _ := initRepo(t, "main")
	sub := filepath.Join(dir, "pkg", "inner")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	info, err := NewInspector().Inspect(context.Background(), sub)
	require.NoError(t, err)

	assert.Equal(t, dir, info.Toplevel)
	assert.Empty(t, info.RemoteURL)
	assert.Equal(t, "main", info.Branch)
}

func TestInspect_DetachedHead(t *testing.T) {
	dir, repo := initRepo(t, "main")
	hash := commitFile(t, repo, dir, "a.txt")

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Hash: hash}))

	info, err := NewInspector().Inspect(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, info.Branch)
}

func TestInspect_NotACheckout(t *testing.T) {
	_, err := NewInspector().Inspect(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrNotGitCheckout)
}
