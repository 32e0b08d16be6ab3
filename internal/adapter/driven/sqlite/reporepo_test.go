package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepoRepo_CreateAndLookup(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, model.Repository{
		Name:      "hello-world",
		RemoteURL: "git@github.com:octocat/hello-world.git",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "main", created.BaseBranch)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hello-world", got.Name)

	byRemote, err := repo.GetByRemoteURL(ctx, "git@github.com:octocat/hello-world.git")
	require.NoError(t, err)
	require.NotNil(t, byRemote)
	assert.Equal(t, created.ID, byRemote.ID)

	missing, err := repo.GetByRemoteURL(ctx, "https://example.com/none.git")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepoRepo_PathsResolveExactly(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, model.Repository{Name: "app"})
	require.NoError(t, err)

	_, err = repo.AddPath(ctx, created.ID, "/work/app")
	require.NoError(t, err)
	_, err = repo.AddPath(ctx, created.ID, "/work/app-worktree")
	require.NoError(t, err)

	got, err := repo.GetByPath(ctx, "/work/app-worktree")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)

	// No prefix matching.
	got, err = repo.GetByPath(ctx, "/work/app/src")
	require.NoError(t, err)
	assert.Nil(t, got)

	paths, err := repo.ListPaths(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "/work/app", paths[0].Path)

	_, err = repo.AddPath(ctx, created.ID, "/work/app")
	assert.ErrorIs(t, err, driven.ErrRepoPathExists)
}

func TestRepoRepo_ListAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, model.Repository{Name: "zeta", CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	_, err = repo.Create(ctx, model.Repository{Name: "alpha"})
	require.NoError(t, err)

	repos, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "alpha", repos[0].Name)
	assert.Equal(t, "zeta", repos[1].Name)
	assert.Equal(t, 2026, repos[1].CreatedAt.Year())
}

func TestRepoRepo_ListAll_Empty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)

	repos, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, repos)
}
