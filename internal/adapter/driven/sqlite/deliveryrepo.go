package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DeliveryStore = (*DeliveryRepo)(nil)

// DeliveryRepo is the SQLite implementation of the DeliveryStore port interface.
type DeliveryRepo struct {
	db *DB
}

// NewDeliveryRepo creates a new DeliveryRepo backed by the given DB.
func NewDeliveryRepo(db *DB) *DeliveryRepo {
	return &DeliveryRepo{db: db}
}

// ListUndeliveredForClient returns sent comments of a session with no
// delivery row for clientID.
func (r *DeliveryRepo) ListUndeliveredForClient(ctx context.Context, sessionID int64, clientID string) ([]model.Comment, error) {
	query := `SELECT ` + commentColumns + `
		FROM comments c
		WHERE c.session_id = ?
		  AND c.status = 'sent'
		  AND NOT EXISTS (
			SELECT 1 FROM comment_deliveries d
			WHERE d.comment_id = c.id AND d.client_id = ?
		  ) ` + commentOrder

	rows, err := r.db.Reader.QueryContext(ctx, query, sessionID, clientID)
	if err != nil {
		return nil, fmt.Errorf("list undelivered comments for client %s in session %d: %w", clientID, sessionID, err)
	}
	defer rows.Close()

	return collectComments(rows)
}

// Record inserts a delivery row. A concurrent or repeated insert for the same
// pair hits the unique index and is ignored, reported as false.
func (r *DeliveryRepo) Record(ctx context.Context, commentID int64, clientID string, at time.Time) (bool, error) {
	const query = `
		INSERT INTO comment_deliveries (comment_id, client_id, delivered_at)
		VALUES (?, ?, ?)
		ON CONFLICT (comment_id, client_id) DO NOTHING
	`

	result, err := r.db.Writer.ExecContext(ctx, query, commentID, clientID, formatTime(at))
	if err != nil {
		return false, fmt.Errorf("record delivery of comment %d to client %s: %w", commentID, clientID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return n == 1, nil
}

// StampFirstDelivery sets delivered_at only when it is still NULL, so the
// first delivery to any client wins.
func (r *DeliveryRepo) StampFirstDelivery(ctx context.Context, commentID int64, at time.Time) error {
	const query = `UPDATE comments SET delivered_at = ? WHERE id = ? AND delivered_at IS NULL`

	if _, err := r.db.Writer.ExecContext(ctx, query, formatTime(at), commentID); err != nil {
		return fmt.Errorf("stamp delivered_at on comment %d: %w", commentID, err)
	}
	return nil
}

// ListByComment returns the delivery rows of a comment in delivery order.
func (r *DeliveryRepo) ListByComment(ctx context.Context, commentID int64) ([]model.Delivery, error) {
	const query = `
		SELECT id, comment_id, client_id, delivered_at
		FROM comment_deliveries
		WHERE comment_id = ?
		ORDER BY delivered_at, id
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, commentID)
	if err != nil {
		return nil, fmt.Errorf("list deliveries for comment %d: %w", commentID, err)
	}
	defer rows.Close()

	var deliveries []model.Delivery
	for rows.Next() {
		var d model.Delivery
		var deliveredAt string
		if err := rows.Scan(&d.ID, &d.CommentID, &d.ClientID, &deliveredAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.DeliveredAt, err = parseTime(deliveredAt)
		if err != nil {
			return nil, fmt.Errorf("parse delivered_at: %w", err)
		}
		deliveries = append(deliveries, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}

	return deliveries, nil
}
