package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewrelay/internal/application"
)

func TestResolver_SessionNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	repo, err := h.repoStore.Create(ctx, modelRepo("acme/empty"))
	require.NoError(t, err)
	_, err = h.repoStore.AddPath(ctx, repo.ID, "/work/empty")
	require.NoError(t, err)

	_, err = h.resolver.Resolve(ctx, "/work/empty")

	var notFound *application.SessionNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "acme/empty", notFound.RepoName)
	assert.Contains(t, application.Remedy(err), "acme/empty")
}

func TestResolver_ExactPathOnly(t *testing.T) {
	h := newHarness(t)
	h.addRepo(t, appPath, appRemote, "feature")

	_, err := h.resolver.Resolve(context.Background(), appPath+"/src")

	var notFound *application.RepoNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestCheckComments_Text(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, session := h.addRepo(t, appPath, appRemote, "feature")

	empty, err := h.agent.CheckComments(ctx, appPath, "client-1")
	require.NoError(t, err)
	assert.Contains(t, empty, "No new review comments for acme/app")

	c := h.createComment(t, session.ID, "file.ts", intPtr(10), "fix this")
	_, err = h.comments.MarkSent(ctx, []int64{c.ID})
	require.NoError(t, err)

	text, err := h.agent.CheckComments(ctx, appPath, "client-1")
	require.NoError(t, err)
	assert.Contains(t, text, "1 new review comment for acme/app (branch feature)")
	assert.Contains(t, text, "## file.ts")
	assert.Contains(t, text, "line 10: fix this")
}

func TestListAllPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, app := h.addRepo(t, appPath, appRemote, "feature")
	_, quiet := h.addRepo(t, "/work/quiet", "git@github.com:acme/quiet.git", "main")

	a := h.createComment(t, app.ID, "a.go", nil, "a")
	h.createComment(t, app.ID, "b.go", nil, "b")
	_, err := h.comments.MarkSent(ctx, []int64{a.ID})
	require.NoError(t, err)

	q := h.createComment(t, quiet.ID, "q.go", nil, "done")
	_, err = h.comments.MarkResolved(ctx, q.ID, "reviewer")
	require.NoError(t, err)

	summaries, err := h.agent.ListAllPending(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, "acme/app", s.Repo.Name)
	assert.Equal(t, []string{appPath}, s.Paths)
	assert.Equal(t, 2, s.Counts.Pending())
	assert.Equal(t, 1, s.Undelivered)

	text := application.FormatPendingSummary(summaries)
	assert.Contains(t, text, "acme/app (branch feature")
	assert.Contains(t, text, "awaiting delivery: 1")
}

func TestListRepoPending_GroupsByFileWithoutDelivering(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, session := h.addRepo(t, appPath, appRemote, "feature")

	ids := []int64{
		h.createComment(t, session.ID, "b.go", intPtr(9), "b9").ID,
		h.createComment(t, session.ID, "a.go", intPtr(5), "a5").ID,
		h.createComment(t, session.ID, "a.go", nil, "a-file").ID,
	}
	h.createComment(t, session.ID, "c.go", nil, "still queued")
	_, err := h.comments.MarkSent(ctx, ids)
	require.NoError(t, err)

	_, groups, err := h.agent.ListRepoPending(ctx, appPath)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "a.go", groups[0].FilePath)
	require.Len(t, groups[0].Comments, 2)
	assert.Equal(t, "a-file", groups[0].Comments[0].Content)
	assert.Equal(t, "a5", groups[0].Comments[1].Content)
	assert.Equal(t, "b.go", groups[1].FilePath)

	// Listing is read-only: a client still receives all three.
	got, err := h.deliveries.UndeliveredForClient(ctx, session.ID, "client-1")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, groups, err = h.agent.ListRepoPending(ctx, appPath)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestGetDetails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, session := h.addRepo(t, appPath, appRemote, "feature")

	c := h.createComment(t, session.ID, "a.go", intPtr(3), "explain")
	_, err := h.comments.MarkSent(ctx, []int64{c.ID})
	require.NoError(t, err)
	h.deliveries.RecordDelivery(ctx, c.ID, "client-1")
	h.deliveries.RecordDelivery(ctx, c.ID, "client-1")

	details, err := h.agent.GetDetails(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "explain", details.Comment.Content)
	assert.Len(t, details.Deliveries, 1)
	require.NotNil(t, details.Comment.DeliveredAt)

	text := application.FormatDetails(details)
	assert.Contains(t, text, "Comment #")
	assert.Contains(t, text, "Location: a.go:3")
	assert.Contains(t, text, "Deliveries: 1")

	_, err = h.agent.GetDetails(ctx, 9999)
	var notFound *application.CommentNotFoundError
	assert.True(t, errors.As(err, &notFound))
}
