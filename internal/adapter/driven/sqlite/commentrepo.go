package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CommentStore = (*CommentRepo)(nil)

const commentColumns = `
	c.id, c.session_id, c.file_path, c.line_start, c.line_end, c.side, c.content,
	c.status, c.created_at, c.sent_at, c.delivered_at, c.resolved_at, c.resolved_by`

// commentOrder lists file-level comments (NULL line_start) before line
// comments within each file.
const commentOrder = `ORDER BY c.file_path ASC, c.line_start ASC NULLS FIRST, c.id ASC`

// CommentRepo is the SQLite implementation of the CommentStore port interface.
type CommentRepo struct {
	db  *DB
	now func() time.Time
}

// NewCommentRepo creates a new CommentRepo backed by the given DB.
func NewCommentRepo(db *DB) *CommentRepo {
	return &CommentRepo{db: db, now: time.Now}
}

// Create inserts a new queued comment and returns it with its generated ID.
func (r *CommentRepo) Create(ctx context.Context, nc model.NewComment) (*model.Comment, error) {
	const query = `
		INSERT INTO comments (session_id, file_path, line_start, line_end, side, content, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := r.now().UTC()

	var side any
	if nc.Side != nil {
		side = string(*nc.Side)
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		nc.SessionID, nc.FilePath, intOrNil(nc.LineStart), intOrNil(nc.LineEnd), side,
		nc.Content, string(model.CommentStatusQueued), formatTime(createdAt),
	)
	if err != nil {
		return nil, fmt.Errorf("create comment in session %d: %w", nc.SessionID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read comment id: %w", err)
	}

	return &model.Comment{
		ID:        id,
		SessionID: nc.SessionID,
		FilePath:  nc.FilePath,
		LineStart: nc.LineStart,
		LineEnd:   nc.LineEnd,
		Side:      nc.Side,
		Content:   nc.Content,
		Status:    model.CommentStatusQueued,
		CreatedAt: createdAt,
	}, nil
}

// Get retrieves a comment by ID. Returns nil, nil if it does not exist.
func (r *CommentRepo) Get(ctx context.Context, id int64) (*model.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments c WHERE c.id = ?`

	c, err := scanComment(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get comment %d: %w", id, err)
	}
	return c, nil
}

// ListBySession returns every comment of a session, grouped by file.
func (r *CommentRepo) ListBySession(ctx context.Context, sessionID int64) ([]model.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments c WHERE c.session_id = ? ` + commentOrder
	return r.list(ctx, fmt.Sprintf("list comments for session %d", sessionID), query, sessionID)
}

// ListBySessionAndStatus returns the comments of a session in one status.
func (r *CommentRepo) ListBySessionAndStatus(ctx context.Context, sessionID int64, status model.CommentStatus) ([]model.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments c WHERE c.session_id = ? AND c.status = ? ` + commentOrder
	return r.list(ctx, fmt.Sprintf("list %s comments for session %d", status, sessionID), query, sessionID, string(status))
}

// ListUndelivered returns sent comments of a session that no client has
// received yet.
func (r *CommentRepo) ListUndelivered(ctx context.Context, sessionID int64) ([]model.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments c
		WHERE c.session_id = ? AND c.status = 'sent' AND c.delivered_at IS NULL ` + commentOrder
	return r.list(ctx, fmt.Sprintf("list undelivered comments for session %d", sessionID), query, sessionID)
}

func (r *CommentRepo) list(ctx context.Context, op, query string, args ...any) ([]model.Comment, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return collectComments(rows)
}

// CountsBySession returns how many comments of a session are in each status.
func (r *CommentRepo) CountsBySession(ctx context.Context, sessionID int64) (model.StatusCounts, error) {
	const query = `SELECT status, COUNT(*) FROM comments WHERE session_id = ? GROUP BY status`

	var counts model.StatusCounts

	rows, err := r.db.Reader.QueryContext(ctx, query, sessionID)
	if err != nil {
		return counts, fmt.Errorf("count comments for session %d: %w", sessionID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return counts, fmt.Errorf("scan comment count: %w", err)
		}
		switch model.CommentStatus(status) {
		case model.CommentStatusQueued:
			counts.Queued = n
		case model.CommentStatusStaged:
			counts.Staged = n
		case model.CommentStatusSent:
			counts.Sent = n
		case model.CommentStatusResolved:
			counts.Resolved = n
		case model.CommentStatusCancelled:
			counts.Cancelled = n
		}
	}

	if err := rows.Err(); err != nil {
		return counts, fmt.Errorf("iterate comment counts: %w", err)
	}

	return counts, nil
}

// UpdateContent replaces the body of a queued or staged comment. Returns
// ErrCommentNotFound if the comment does not exist and ErrInvalidTransition if
// it has already been sent or closed.
func (r *CommentRepo) UpdateContent(ctx context.Context, id int64, content string) error {
	const query = `UPDATE comments SET content = ? WHERE id = ? AND status IN ('queued', 'staged')`

	result, err := r.db.Writer.ExecContext(ctx, query, content, id)
	if err != nil {
		return fmt.Errorf("update comment %d content: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	return r.missingOrInvalid(ctx, id, "update comment content")
}

// UpdateStatus moves a comment from one of the from statuses to to. Timestamps
// that belong to the target status are stamped if unset.
func (r *CommentRepo) UpdateStatus(ctx context.Context, id int64, from []model.CommentStatus, to model.CommentStatus, at time.Time) (int64, error) {
	if len(from) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(from)), ", ")
	query := `UPDATE comments SET status = ?`
	args := []any{string(to)}

	switch to {
	case model.CommentStatusSent:
		query += `, sent_at = COALESCE(sent_at, ?)`
		args = append(args, formatTime(at))
	case model.CommentStatusResolved:
		query += `, resolved_at = COALESCE(resolved_at, ?)`
		args = append(args, formatTime(at))
	}

	query += ` WHERE id = ? AND status IN (` + placeholders + `)`
	args = append(args, id)
	for _, s := range from {
		args = append(args, string(s))
	}

	result, err := r.db.Writer.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update comment %d status to %s: %w", id, to, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return n, nil
}

// DeleteQueued removes a comment while it is still queued. It returns false
// when the comment exists in any other status and ErrCommentNotFound when it
// does not exist at all.
func (r *CommentRepo) DeleteQueued(ctx context.Context, id int64) (bool, error) {
	const query = `DELETE FROM comments WHERE id = ? AND status = 'queued'`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete comment %d: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	existing, err := r.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, fmt.Errorf("delete comment %d: %w", id, driven.ErrCommentNotFound)
	}
	return false, nil
}

// Stage moves queued comments to staged.
func (r *CommentRepo) Stage(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders, args := inClause(ids)
	query := `UPDATE comments SET status = 'staged' WHERE status = 'queued' AND id IN (` + placeholders + `)`

	result, err := r.db.Writer.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("stage comments: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return int(n), nil
}

// MarkSent moves queued or staged comments to sent. sent_at keeps its first value.
func (r *CommentRepo) MarkSent(ctx context.Context, ids []int64, at time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders, idArgs := inClause(ids)
	query := `UPDATE comments SET status = 'sent', sent_at = COALESCE(sent_at, ?)
		WHERE status IN ('queued', 'staged') AND id IN (` + placeholders + `)`

	args := append([]any{formatTime(at)}, idArgs...)

	result, err := r.db.Writer.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark comments sent: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return int(n), nil
}

// MarkResolved resolves a pending comment exactly once. A second call finds
// resolved_at already set and reports false without touching the row.
func (r *CommentRepo) MarkResolved(ctx context.Context, id int64, by string, at time.Time) (bool, error) {
	const query = `
		UPDATE comments SET status = 'resolved', resolved_at = ?, resolved_by = ?
		WHERE id = ? AND resolved_at IS NULL AND status IN ('queued', 'staged', 'sent')
	`

	var resolvedBy any
	if by != "" {
		resolvedBy = by
	}

	result, err := r.db.Writer.ExecContext(ctx, query, formatTime(at), resolvedBy, id)
	if err != nil {
		return false, fmt.Errorf("resolve comment %d: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return n == 1, nil
}

// SessionIDs returns the distinct sessions owning the given comments.
func (r *CommentRepo) SessionIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders, args := inClause(ids)
	query := `SELECT DISTINCT session_id FROM comments WHERE id IN (` + placeholders + `) ORDER BY session_id`

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query comment sessions: %w", err)
	}
	defer rows.Close()

	var sessionIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		sessionIDs = append(sessionIDs, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comment sessions: %w", err)
	}

	return sessionIDs, nil
}

func (r *CommentRepo) missingOrInvalid(ctx context.Context, id int64, op string) error {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%s %d: %w", op, id, driven.ErrCommentNotFound)
	}
	return fmt.Errorf("%s %d in status %s: %w", op, id, existing.Status, driven.ErrInvalidTransition)
}

func collectComments(rows *sql.Rows) ([]model.Comment, error) {
	var comments []model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}

func scanComment(s scanner) (*model.Comment, error) {
	var c model.Comment
	var lineStart, lineEnd sql.NullInt64
	var side, resolvedBy sql.NullString
	var status, createdAt string
	var sentAt, deliveredAt, resolvedAt sql.NullString

	err := s.Scan(
		&c.ID, &c.SessionID, &c.FilePath, &lineStart, &lineEnd, &side, &c.Content,
		&status, &createdAt, &sentAt, &deliveredAt, &resolvedAt, &resolvedBy,
	)
	if err != nil {
		return nil, err
	}

	c.Status = model.CommentStatus(status)

	if lineStart.Valid {
		v := int(lineStart.Int64)
		c.LineStart = &v
	}
	if lineEnd.Valid {
		v := int(lineEnd.Int64)
		c.LineEnd = &v
	}
	if side.Valid {
		v := model.DiffSide(side.String)
		c.Side = &v
	}
	if resolvedBy.Valid {
		v := resolvedBy.String
		c.ResolvedBy = &v
	}

	c.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if c.SentAt, err = parseNullTime(sentAt); err != nil {
		return nil, fmt.Errorf("parse sent_at: %w", err)
	}
	if c.DeliveredAt, err = parseNullTime(deliveredAt); err != nil {
		return nil, fmt.Errorf("parse delivered_at: %w", err)
	}
	if c.ResolvedAt, err = parseNullTime(resolvedAt); err != nil {
		return nil, fmt.Errorf("parse resolved_at: %w", err)
	}

	return &c, nil
}

func intOrNil(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
