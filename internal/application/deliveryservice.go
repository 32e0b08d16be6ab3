package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

// DeliveryService hands sent comments to agent clients and keeps the
// per-client delivery ledger.
type DeliveryService struct {
	deliveryStore driven.DeliveryStore
	now           func() time.Time
}

// NewDeliveryService creates a new DeliveryService with the required dependencies.
func NewDeliveryService(deliveryStore driven.DeliveryStore) *DeliveryService {
	return &DeliveryService{
		deliveryStore: deliveryStore,
		now:           time.Now,
	}
}

// UndeliveredForClient returns the sent comments of a session that clientID
// has not received yet and records their delivery.
//
// Each comment is claimed by inserting its (comment, client) ledger row. A
// comment whose row already exists was claimed by a concurrent call from the
// same client and is left out. A comment whose insert fails outright is still
// returned: a repeat delivery is harmless, a lost one is not. Comments
// delivered for the first time carry the new DeliveredAt.
func (s *DeliveryService) UndeliveredForClient(ctx context.Context, sessionID int64, clientID string) ([]model.Comment, error) {
	candidates, err := s.deliveryStore.ListUndeliveredForClient(ctx, sessionID, clientID)
	if err != nil {
		return nil, storageErr("list undelivered comments", err)
	}

	delivered := make([]model.Comment, 0, len(candidates))
	for _, c := range candidates {
		at, inserted, err := s.record(ctx, c.ID, clientID)
		if err != nil {
			delivered = append(delivered, c)
			continue
		}
		if !inserted {
			continue
		}
		if c.DeliveredAt == nil {
			c.DeliveredAt = &at
		}
		delivered = append(delivered, c)
	}
	return delivered, nil
}

// RecordDelivery notes that clientID received commentID. Failures are logged
// and never returned.
func (s *DeliveryService) RecordDelivery(ctx context.Context, commentID int64, clientID string) {
	_, _, _ = s.record(ctx, commentID, clientID)
}

// Deliveries returns the ledger rows of a comment.
func (s *DeliveryService) Deliveries(ctx context.Context, commentID int64) ([]model.Delivery, error) {
	rows, err := s.deliveryStore.ListByComment(ctx, commentID)
	return rows, storageErr("list deliveries", err)
}

func (s *DeliveryService) record(ctx context.Context, commentID int64, clientID string) (time.Time, bool, error) {
	at := s.now()

	inserted, err := s.deliveryStore.Record(ctx, commentID, clientID, at)
	if err != nil {
		slog.Warn("delivery record failed", "comment_id", commentID, "client_id", clientID, "error", err)
		return at, false, err
	}
	if !inserted {
		return at, false, nil
	}

	if err := s.deliveryStore.StampFirstDelivery(ctx, commentID, at); err != nil {
		slog.Warn("delivered_at stamp failed", "comment_id", commentID, "error", err)
	}
	return at, true, nil
}
