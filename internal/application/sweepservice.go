package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

// SweepService deletes stale signal files on a cron schedule.
type SweepService struct {
	signalStore driven.SignalStore
	schedule    string
}

// NewSweepService creates a SweepService. schedule accepts standard cron
// expressions and descriptors such as "@every 1h".
func NewSweepService(signalStore driven.SignalStore, schedule string) *SweepService {
	return &SweepService{
		signalStore: signalStore,
		schedule:    schedule,
	}
}

// SweepOnce runs a single sweep and returns the number of files removed.
func (s *SweepService) SweepOnce(ctx context.Context) (int, error) {
	removed, err := s.signalStore.Sweep(ctx)
	if err != nil {
		return removed, &CoordinationError{Op: "sweep signal files", Err: err}
	}
	if removed > 0 {
		slog.Info("signal sweep complete", "removed", removed)
	}
	return removed, nil
}

// Start runs an immediate sweep, then sweeps on the schedule until ctx is
// canceled. It returns an error only for an invalid schedule.
func (s *SweepService) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() {
		if _, err := s.SweepOnce(ctx); err != nil {
			slog.Error("signal sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	if _, err := s.SweepOnce(ctx); err != nil {
		slog.Error("initial signal sweep failed", "error", err)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("sweep service stopped")
	return nil
}
