package driven

import (
	"context"
	"errors"
	"time"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
)

// Sentinel errors returned by CommentStore implementations.
var (
	// ErrCommentNotFound indicates the requested comment does not exist.
	ErrCommentNotFound = errors.New("comment not found")

	// ErrInvalidTransition indicates a status change the lifecycle forbids,
	// including deleting a comment that is no longer queued.
	ErrInvalidTransition = errors.New("invalid comment status transition")
)

// CommentStore defines the driven port for comment persistence.
// Get returns nil, nil when the comment does not exist.
type CommentStore interface {
	Create(ctx context.Context, c model.NewComment) (*model.Comment, error)
	Get(ctx context.Context, id int64) (*model.Comment, error)
	ListBySession(ctx context.Context, sessionID int64) ([]model.Comment, error)
	ListBySessionAndStatus(ctx context.Context, sessionID int64, status model.CommentStatus) ([]model.Comment, error)
	CountsBySession(ctx context.Context, sessionID int64) (model.StatusCounts, error)

	// UpdateContent replaces the body of a queued or staged comment.
	UpdateContent(ctx context.Context, id int64, content string) error

	// UpdateStatus moves a comment from one of the given source statuses to
	// the target status and reports how many rows changed.
	UpdateStatus(ctx context.Context, id int64, from []model.CommentStatus, to model.CommentStatus, at time.Time) (int64, error)

	// DeleteQueued removes a comment only while it is queued.
	DeleteQueued(ctx context.Context, id int64) (bool, error)

	// Stage moves queued comments to staged and returns the number changed.
	Stage(ctx context.Context, ids []int64) (int, error)

	// MarkSent moves queued or staged comments to sent, stamping sent_at if
	// unset, and returns the number changed.
	MarkSent(ctx context.Context, ids []int64, at time.Time) (int, error)

	// MarkResolved stamps resolved_at/resolved_by once. It reports whether
	// this call performed the transition.
	MarkResolved(ctx context.Context, id int64, by string, at time.Time) (bool, error)

	// SessionIDs returns the distinct sessions owning the given comments.
	SessionIDs(ctx context.Context, ids []int64) ([]int64, error)

	// ListUndelivered returns sent comments of a session that no client has
	// received yet, ordered by file path then line (file-level comments first).
	ListUndelivered(ctx context.Context, sessionID int64) ([]model.Comment, error)
}
