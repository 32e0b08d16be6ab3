package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

// ClientTracker holds the identity of one long-lived agent connection. The
// client row is created on first use and its last_seen_at refreshed on every
// later call.
type ClientTracker struct {
	clientStore driven.ClientStore
	clientName  string
	workingDir  string
	now         func() time.Time

	mu sync.Mutex
	id string
}

// NewClientTracker creates a tracker for one agent process.
func NewClientTracker(clientStore driven.ClientStore, clientName, workingDir string) *ClientTracker {
	return &ClientTracker{
		clientStore: clientStore,
		clientName:  clientName,
		workingDir:  workingDir,
		now:         time.Now,
	}
}

// WorkingDir returns the directory the client operates in.
func (t *ClientTracker) WorkingDir() string {
	return t.workingDir
}

// SetClientName records the name the agent announced about itself. It only
// takes effect before the client row is created.
func (t *ClientTracker) SetClientName(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.id == "" && name != "" {
		t.clientName = name
	}
}

// Identify returns the client id, creating the client row on first call.
func (t *ClientTracker) Identify(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.id != "" {
		if err := t.clientStore.Touch(ctx, t.id); err != nil {
			slog.Warn("client touch failed", "client_id", t.id, "error", err)
		}
		return t.id, nil
	}

	now := t.now()
	client := model.Client{
		ID:          uuid.NewString(),
		ClientName:  t.clientName,
		WorkingDir:  t.workingDir,
		ConnectedAt: now,
		LastSeenAt:  now,
	}
	if err := t.clientStore.Create(ctx, client); err != nil {
		return "", storageErr("create client", err)
	}

	t.id = client.ID
	slog.Info("agent client registered", "client_id", client.ID, "client_name", client.ClientName, "working_dir", client.WorkingDir)
	return t.id, nil
}
