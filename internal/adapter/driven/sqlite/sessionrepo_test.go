package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepo_GetActive_MostRecent(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepoRepo(db)
	sessions := NewSessionRepo(db)
	ctx := context.Background()

	repo, err := repos.Create(ctx, model.Repository{Name: "app"})
	require.NoError(t, err)

	none, err := sessions.GetActive(ctx, repo.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	sessions.now = func() time.Time { return base }
	older, err := sessions.Create(ctx, repo.ID, "feature-a")
	require.NoError(t, err)

	sessions.now = func() time.Time { return base.Add(time.Hour) }
	newer, err := sessions.Create(ctx, repo.ID, "feature-b")
	require.NoError(t, err)

	active, err := sessions.GetActive(ctx, repo.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, newer.ID, active.ID)
	assert.Equal(t, "feature-b", active.Branch)

	all, err := sessions.ListByRepo(ctx, repo.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)
	assert.Equal(t, older.ID, all[1].ID)

	got, err := sessions.Get(ctx, older.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, base.Equal(got.CreatedAt))
}

func TestSessionRepo_GetActive_TieBreaksOnID(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepoRepo(db)
	sessions := NewSessionRepo(db)
	ctx := context.Background()

	repo, err := repos.Create(ctx, model.Repository{Name: "app"})
	require.NoError(t, err)

	fixed := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	sessions.now = func() time.Time { return fixed }
	_, err = sessions.Create(ctx, repo.ID, "one")
	require.NoError(t, err)
	second, err := sessions.Create(ctx, repo.ID, "two")
	require.NoError(t, err)

	active, err := sessions.GetActive(ctx, repo.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}
