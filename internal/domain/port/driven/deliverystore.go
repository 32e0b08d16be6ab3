package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
)

// DeliveryStore defines the driven port for the per-client delivery ledger.
type DeliveryStore interface {
	// ListUndeliveredForClient returns sent comments of a session that have no
	// delivery row for clientID, ordered by file path then line start with
	// file-level comments first.
	ListUndeliveredForClient(ctx context.Context, sessionID int64, clientID string) ([]model.Comment, error)

	// Record inserts a delivery row. It reports false without error when the
	// (comment, client) pair was already recorded.
	Record(ctx context.Context, commentID int64, clientID string, at time.Time) (bool, error)

	// StampFirstDelivery sets delivered_at on the comment only if unset.
	StampFirstDelivery(ctx context.Context, commentID int64, at time.Time) error

	ListByComment(ctx context.Context, commentID int64) ([]model.Delivery, error)
}
