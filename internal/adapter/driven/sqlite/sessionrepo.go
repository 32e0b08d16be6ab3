package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SessionStore = (*SessionRepo)(nil)

// SessionRepo is the SQLite implementation of the SessionStore port interface.
type SessionRepo struct {
	db  *DB
	now func() time.Time
}

// NewSessionRepo creates a new SessionRepo backed by the given DB.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db, now: time.Now}
}

// Create starts a new review session for a branch. It becomes the
// repository's active session.
func (r *SessionRepo) Create(ctx context.Context, repoID int64, branch string) (*model.ReviewSession, error) {
	const query = `INSERT INTO review_sessions (repo_id, branch, created_at) VALUES (?, ?, ?)`

	createdAt := r.now().UTC()

	result, err := r.db.Writer.ExecContext(ctx, query, repoID, branch, formatTime(createdAt))
	if err != nil {
		return nil, fmt.Errorf("create session for repository %d: %w", repoID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read session id: %w", err)
	}

	return &model.ReviewSession{ID: id, RepoID: repoID, Branch: branch, CreatedAt: createdAt}, nil
}

// Get retrieves a session by ID. Returns nil, nil if it does not exist.
func (r *SessionRepo) Get(ctx context.Context, id int64) (*model.ReviewSession, error) {
	const query = `SELECT id, repo_id, branch, created_at FROM review_sessions WHERE id = ?`

	session, err := scanSession(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	return session, nil
}

// GetActive returns the most recently created session of a repository, or
// nil, nil when the repository has none. Ties on created_at go to the
// higher ID.
func (r *SessionRepo) GetActive(ctx context.Context, repoID int64) (*model.ReviewSession, error) {
	const query = `
		SELECT id, repo_id, branch, created_at
		FROM review_sessions
		WHERE repo_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	session, err := scanSession(r.db.Reader.QueryRowContext(ctx, query, repoID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active session for repository %d: %w", repoID, err)
	}
	return session, nil
}

// ListByRepo returns all sessions of a repository, newest first.
func (r *SessionRepo) ListByRepo(ctx context.Context, repoID int64) ([]model.ReviewSession, error) {
	const query = `
		SELECT id, repo_id, branch, created_at
		FROM review_sessions
		WHERE repo_id = ?
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, repoID)
	if err != nil {
		return nil, fmt.Errorf("list sessions for repository %d: %w", repoID, err)
	}
	defer rows.Close()

	var sessions []model.ReviewSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

func scanSession(s scanner) (*model.ReviewSession, error) {
	var session model.ReviewSession
	var createdAt string

	if err := s.Scan(&session.ID, &session.RepoID, &session.Branch, &createdAt); err != nil {
		return nil, err
	}

	var err error
	session.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &session, nil
}
