package sqlite

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a named shared in-memory SQLite database for testing.
// Writer and reader connections share the same in-memory database via cache=shared.
// A unique name derived from t.Name() ensures isolation between parallel tests.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Percent-encode the test name so it's a safe SQLite URI filename component
	// and cannot be misinterpreted as query parameters in the "file:%s?..." DSN.
	safeName := url.PathEscape(t.Name())
	// WAL mode is not applicable to in-memory databases; omit journal_mode pragma.
	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=cache_size(-64000)",
		safeName,
	)

	db, err := open(context.Background(), dsn, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

// setupFileDB opens a WAL database file in a temp dir. Concurrency tests use
// it because shared-cache in-memory databases report table locks instead of
// waiting on busy_timeout.
func setupFileDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db.Writer))
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// addTestSession inserts a repository with one path and one session and
// returns the session.
func addTestSession(t *testing.T, db *DB, path string) *model.ReviewSession {
	t.Helper()
	ctx := context.Background()

	repo, err := NewRepoRepo(db).Create(ctx, model.Repository{Name: filepath.Base(path)})
	require.NoError(t, err)

	_, err = NewRepoRepo(db).AddPath(ctx, repo.ID, path)
	require.NoError(t, err)

	session, err := NewSessionRepo(db).Create(ctx, repo.ID, "feature")
	require.NoError(t, err)
	return session
}

func intPtr(v int) *int {
	return &v
}
