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
var _ driven.ClientStore = (*ClientRepo)(nil)

// ClientRepo is the SQLite implementation of the ClientStore port interface.
type ClientRepo struct {
	db  *DB
	now func() time.Time
}

// NewClientRepo creates a new ClientRepo backed by the given DB.
func NewClientRepo(db *DB) *ClientRepo {
	return &ClientRepo{db: db, now: time.Now}
}

// Create inserts a client row. Connected and last-seen default to now.
func (r *ClientRepo) Create(ctx context.Context, client model.Client) error {
	const query = `
		INSERT INTO mcp_clients (id, client_name, working_dir, connected_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?)
	`

	now := r.now().UTC()
	if client.ConnectedAt.IsZero() {
		client.ConnectedAt = now
	}
	if client.LastSeenAt.IsZero() {
		client.LastSeenAt = now
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		client.ID, nullString(client.ClientName), nullString(client.WorkingDir),
		formatTime(client.ConnectedAt), formatTime(client.LastSeenAt),
	)
	if err != nil {
		return fmt.Errorf("create client %s: %w", client.ID, err)
	}

	return nil
}

// Get retrieves a client by ID. Returns nil, nil if it does not exist.
func (r *ClientRepo) Get(ctx context.Context, id string) (*model.Client, error) {
	const query = `SELECT id, client_name, working_dir, connected_at, last_seen_at FROM mcp_clients WHERE id = ?`

	var client model.Client
	var name, workingDir sql.NullString
	var connectedAt, lastSeenAt string

	err := r.db.Reader.QueryRowContext(ctx, query, id).Scan(
		&client.ID, &name, &workingDir, &connectedAt, &lastSeenAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get client %s: %w", id, err)
	}

	client.ClientName = name.String
	client.WorkingDir = workingDir.String

	if client.ConnectedAt, err = parseTime(connectedAt); err != nil {
		return nil, fmt.Errorf("parse connected_at: %w", err)
	}
	if client.LastSeenAt, err = parseTime(lastSeenAt); err != nil {
		return nil, fmt.Errorf("parse last_seen_at: %w", err)
	}

	return &client, nil
}

// Touch refreshes last_seen_at for a client.
func (r *ClientRepo) Touch(ctx context.Context, id string) error {
	const query = `UPDATE mcp_clients SET last_seen_at = ? WHERE id = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, formatTime(r.now()), id); err != nil {
		return fmt.Errorf("touch client %s: %w", id, err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
