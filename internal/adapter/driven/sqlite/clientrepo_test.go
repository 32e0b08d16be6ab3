package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRepo_CreateGetTouch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClientRepo(db)
	ctx := context.Background()

	start := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return start }

	require.NoError(t, repo.Create(ctx, model.Client{ID: "c-1", ClientName: "claude", WorkingDir: "/work/app"}))

	got, err := repo.Get(ctx, "c-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "claude", got.ClientName)
	assert.Equal(t, "/work/app", got.WorkingDir)
	assert.True(t, start.Equal(got.ConnectedAt))
	assert.True(t, start.Equal(got.LastSeenAt))

	repo.now = func() time.Time { return start.Add(10 * time.Minute) }
	require.NoError(t, repo.Touch(ctx, "c-1"))

	got, err = repo.Get(ctx, "c-1")
	require.NoError(t, err)
	assert.True(t, start.Equal(got.ConnectedAt))
	assert.True(t, start.Add(10*time.Minute).Equal(got.LastSeenAt))
}

func TestClientRepo_Get_NotFound(t *testing.T) {
	db := setupTestDB(t)

	got, err := NewClientRepo(db).Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}
