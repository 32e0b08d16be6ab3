package application_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewrelay/internal/adapter/driven/signalfile"
	"github.com/ericfisherdev/reviewrelay/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reviewrelay/internal/application"
	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

// harness wires the application services over a real SQLite file and a
// temp signals directory.
type harness struct {
	repoStore     *sqlite.RepoRepo
	sessionStore  *sqlite.SessionRepo
	commentStore  *sqlite.CommentRepo
	deliveryStore *sqlite.DeliveryRepo
	clientStore   *sqlite.ClientRepo
	signalStore   *signalfile.Store

	signals    *application.SignalService
	comments   *application.CommentService
	deliveries *application.DeliveryService
	resolver   *application.Resolver
	agent      *application.AgentService
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithSignals(t, nil)
}

// newHarnessWithSignals lets a test replace the signal store; nil uses a
// real file store under t.TempDir().
func newHarnessWithSignals(t *testing.T, override driven.SignalStore) *harness {
	t.Helper()

	db, err := sqlite.NewDB(context.Background(), filepath.Join(t.TempDir(), "reviewrelay.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.RunMigrations(db.Writer))
	t.Cleanup(func() { _ = db.Close() })

	h := &harness{
		repoStore:     sqlite.NewRepoRepo(db),
		sessionStore:  sqlite.NewSessionRepo(db),
		commentStore:  sqlite.NewCommentRepo(db),
		deliveryStore: sqlite.NewDeliveryRepo(db),
		clientStore:   sqlite.NewClientRepo(db),
		signalStore:   signalfile.NewStore(filepath.Join(t.TempDir(), "signals"), signalfile.DefaultMaxAge, nil),
	}

	var signalStore driven.SignalStore = h.signalStore
	if override != nil {
		signalStore = override
	}

	h.signals = application.NewSignalService(h.repoStore, h.sessionStore, h.commentStore, signalStore)
	h.comments = application.NewCommentService(h.commentStore, h.sessionStore, h.signals)
	h.deliveries = application.NewDeliveryService(h.deliveryStore)
	h.resolver = application.NewResolver(h.repoStore, h.sessionStore)
	h.agent = application.NewAgentService(
		h.resolver, h.comments, h.deliveries, h.signals,
		h.repoStore, h.sessionStore, h.commentStore,
	)
	return h
}

// addRepo registers a repository at path with one session on branch.
func (h *harness) addRepo(t *testing.T, path, remoteURL, branch string) (*model.Repository, *model.ReviewSession) {
	t.Helper()
	ctx := context.Background()

	repo, err := h.repoStore.Create(ctx, model.Repository{
		Name:      application.RepoDisplayName(remoteURL, path),
		RemoteURL: remoteURL,
	})
	require.NoError(t, err)

	_, err = h.repoStore.AddPath(ctx, repo.ID, path)
	require.NoError(t, err)

	session, err := h.sessionStore.Create(ctx, repo.ID, branch)
	require.NoError(t, err)
	return repo, session
}

// signalFor reads the signal record of a path, nil when absent.
func (h *harness) signalFor(t *testing.T, path, remoteURL string) *model.SignalRecord {
	t.Helper()
	rec, err := h.signalStore.Read(context.Background(), path, remoteURL)
	require.NoError(t, err)
	return rec
}

func (h *harness) createComment(t *testing.T, sessionID int64, file string, line *int, content string) *model.Comment {
	t.Helper()
	c, err := h.comments.Create(context.Background(), model.NewComment{
		SessionID: sessionID,
		FilePath:  file,
		Content:   content,
		LineStart: line,
	})
	require.NoError(t, err)
	return c
}

func intPtr(v int) *int { return &v }

func modelRepo(name string) model.Repository { return model.Repository{Name: name} }
