// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

// ReviewerIdentity is recorded as resolved_by when the reviewer resolves a
// comment from the UI.
const ReviewerIdentity = "reviewer"

// CommentService owns the comment lifecycle. Every mutation that changes the
// pending set of a session is followed by a signal recompute.
type CommentService struct {
	commentStore driven.CommentStore
	sessionStore driven.SessionStore
	signals      *SignalService
	now          func() time.Time
}

// NewCommentService creates a new CommentService with the required dependencies.
func NewCommentService(
	commentStore driven.CommentStore,
	sessionStore driven.SessionStore,
	signals *SignalService,
) *CommentService {
	return &CommentService{
		commentStore: commentStore,
		sessionStore: sessionStore,
		signals:      signals,
		now:          time.Now,
	}
}

// Create adds a queued comment to a session.
func (s *CommentService) Create(ctx context.Context, nc model.NewComment) (*model.Comment, error) {
	nc.FilePath = strings.TrimSpace(nc.FilePath)
	if err := validateNewComment(nc); err != nil {
		return nil, err
	}

	session, err := s.sessionStore.Get(ctx, nc.SessionID)
	if err != nil {
		return nil, storageErr("get session", err)
	}
	if session == nil {
		return nil, fmt.Errorf("create comment: session %d: %w", nc.SessionID, driven.ErrSessionNotFound)
	}

	c, err := s.commentStore.Create(ctx, nc)
	if err != nil {
		return nil, storageErr("create comment", err)
	}

	s.signals.Notify(ctx, c.SessionID)
	return c, nil
}

// Get returns a comment or *CommentNotFoundError.
func (s *CommentService) Get(ctx context.Context, id int64) (*model.Comment, error) {
	c, err := s.commentStore.Get(ctx, id)
	if err != nil {
		return nil, storageErr("get comment", err)
	}
	if c == nil {
		return nil, &CommentNotFoundError{ID: id}
	}
	return c, nil
}

// ListBySession returns a session's comments, file-level comments first
// within each file.
func (s *CommentService) ListBySession(ctx context.Context, sessionID int64) ([]model.Comment, error) {
	comments, err := s.commentStore.ListBySession(ctx, sessionID)
	return comments, storageErr("list comments", err)
}

// ListBySessionAndStatus returns a session's comments in one status.
func (s *CommentService) ListBySessionAndStatus(ctx context.Context, sessionID int64, status model.CommentStatus) ([]model.Comment, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	comments, err := s.commentStore.ListBySessionAndStatus(ctx, sessionID, status)
	return comments, storageErr("list comments by status", err)
}

// Counts returns per-status comment counts for a session.
func (s *CommentService) Counts(ctx context.Context, sessionID int64) (model.StatusCounts, error) {
	counts, err := s.commentStore.CountsBySession(ctx, sessionID)
	return counts, storageErr("count comments", err)
}

// Update applies a content edit, a status change, or both. A content edit
// is applied first and requires the comment to be queued or staged.
func (s *CommentService) Update(ctx context.Context, id int64, patch model.CommentPatch) (*model.Comment, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Content != nil {
		content := strings.TrimSpace(*patch.Content)
		if content == "" {
			return nil, fmt.Errorf("%w: content is required", ErrInvalidInput)
		}
		if err := s.commentStore.UpdateContent(ctx, id, content); err != nil {
			return nil, s.mapStoreErr(id, "update comment content", err)
		}
	}

	if patch.Status != nil && *patch.Status != current.Status {
		if err := s.transition(ctx, current, *patch.Status, ReviewerIdentity); err != nil {
			return nil, err
		}
		s.signals.Notify(ctx, current.SessionID)
	}

	return s.Get(ctx, id)
}

func (s *CommentService) transition(ctx context.Context, current *model.Comment, to model.CommentStatus, by string) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, to)
	}
	if !model.CanTransition(current.Status, to) {
		return fmt.Errorf("comment %d: %s to %s: %w", current.ID, current.Status, to, driven.ErrInvalidTransition)
	}

	if to == model.CommentStatusResolved {
		if _, err := s.commentStore.MarkResolved(ctx, current.ID, by, s.now()); err != nil {
			return storageErr("resolve comment", err)
		}
		return nil
	}

	n, err := s.commentStore.UpdateStatus(ctx, current.ID, []model.CommentStatus{current.Status}, to, s.now())
	if err != nil {
		return storageErr("update comment status", err)
	}
	if n == 0 {
		// Another writer moved the comment after we read it.
		return fmt.Errorf("comment %d changed concurrently: %w", current.ID, driven.ErrInvalidTransition)
	}
	return nil
}

// Delete removes a queued comment. It reports false when the comment exists
// but has moved past queued.
func (s *CommentService) Delete(ctx context.Context, id int64) (bool, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}

	deleted, err := s.commentStore.DeleteQueued(ctx, id)
	if err != nil {
		return false, s.mapStoreErr(id, "delete comment", err)
	}
	if deleted {
		s.signals.Notify(ctx, current.SessionID)
	}
	return deleted, nil
}

// Stage moves queued comments to staged. The pending count is unchanged so
// no signal recompute is needed.
func (s *CommentService) Stage(ctx context.Context, ids []int64) (int, error) {
	n, err := s.commentStore.Stage(ctx, ids)
	return n, storageErr("stage comments", err)
}

// MarkSent moves queued or staged comments to sent.
func (s *CommentService) MarkSent(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	sessionIDs, err := s.commentStore.SessionIDs(ctx, ids)
	if err != nil {
		return 0, storageErr("find comment sessions", err)
	}

	n, err := s.commentStore.MarkSent(ctx, ids, s.now())
	if err != nil {
		return 0, storageErr("mark comments sent", err)
	}
	if n > 0 {
		s.signals.Notify(ctx, sessionIDs...)
	}
	return n, nil
}

// SendStaged marks every staged comment of a session as sent.
func (s *CommentService) SendStaged(ctx context.Context, sessionID int64) (int, error) {
	staged, err := s.commentStore.ListBySessionAndStatus(ctx, sessionID, model.CommentStatusStaged)
	if err != nil {
		return 0, storageErr("list staged comments", err)
	}

	ids := make([]int64, 0, len(staged))
	for _, c := range staged {
		ids = append(ids, c.ID)
	}
	return s.MarkSent(ctx, ids)
}

// MarkResolved resolves a comment. Resolving an already resolved comment
// succeeds and returns the original resolved_at. Cancelled comments cannot
// be resolved.
func (s *CommentService) MarkResolved(ctx context.Context, id int64, by string) (*model.Comment, error) {
	changed, err := s.commentStore.MarkResolved(ctx, id, by, s.now())
	if err != nil {
		return nil, storageErr("resolve comment", err)
	}

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !changed && c.Status != model.CommentStatusResolved {
		return nil, fmt.Errorf("comment %d: %s to %s: %w", id, c.Status, model.CommentStatusResolved, driven.ErrInvalidTransition)
	}
	if changed {
		s.signals.Notify(ctx, c.SessionID)
	}
	return c, nil
}

func (s *CommentService) mapStoreErr(id int64, op string, err error) error {
	switch {
	case errors.Is(err, driven.ErrCommentNotFound):
		return &CommentNotFoundError{ID: id}
	case errors.Is(err, driven.ErrInvalidTransition):
		return fmt.Errorf("%s %d: %w", op, id, err)
	default:
		return storageErr(op, err)
	}
}

func validateNewComment(nc model.NewComment) error {
	switch {
	case nc.FilePath == "":
		return fmt.Errorf("%w: file path is required", ErrInvalidInput)
	case strings.TrimSpace(nc.Content) == "":
		return fmt.Errorf("%w: content is required", ErrInvalidInput)
	case nc.LineEnd != nil && nc.LineStart == nil:
		return fmt.Errorf("%w: line end requires line start", ErrInvalidInput)
	case nc.LineStart != nil && *nc.LineStart < 1:
		return fmt.Errorf("%w: line start must be positive", ErrInvalidInput)
	case nc.LineStart != nil && nc.LineEnd != nil && *nc.LineEnd < *nc.LineStart:
		return fmt.Errorf("%w: line end precedes line start", ErrInvalidInput)
	case nc.Side != nil && *nc.Side != model.DiffSideOld && *nc.Side != model.DiffSideNew:
		return fmt.Errorf("%w: unknown diff side %q", ErrInvalidInput, *nc.Side)
	}
	return nil
}
