// Package signalfile implements the SignalStore port with one small JSON file
// per registered working directory, and a watcher that turns changes to such
// a file into notifications.
package signalfile

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SignalStore = (*Store)(nil)

// DefaultMaxAge is how long a signal file may live before a sweep deletes it
// regardless of its pending count.
const DefaultMaxAge = 7 * 24 * time.Hour

// remotePattern extracts owner and repo from ssh and https remote URLs,
// e.g. git@github.com:owner/repo.git or https://host/owner/repo.
var remotePattern = regexp.MustCompile(`[:/]([^/:]+)/([^/:]+?)(?:\.git)?/?$`)

var unsafeSlugChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// Store reads and writes signal files inside a single directory.
type Store struct {
	dir    string
	maxAge time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewStore creates a Store rooted at dir. A non-positive maxAge falls back to
// DefaultMaxAge. The directory is created lazily on first write.
func NewStore(dir string, maxAge time.Duration, logger *slog.Logger) *Store {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, maxAge: maxAge, now: time.Now, logger: logger}
}

// Dir returns the signals directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the signal file location for a working directory.
func (s *Store) Path(repoPath, remoteURL string) string {
	return filepath.Join(s.dir, FileName(repoPath, remoteURL))
}

// FileName derives "<slug>-<hash>.json". The slug is owner-repo from the
// remote URL, or the base name of the path when there is no usable remote.
// The hash covers the full path so same-named checkouts do not collide.
func FileName(repoPath, remoteURL string) string {
	sum := sha256.Sum256([]byte(repoPath))
	return slug(repoPath, remoteURL) + "-" + hex.EncodeToString(sum[:])[:8] + ".json"
}

func slug(repoPath, remoteURL string) string {
	var raw string
	if m := remotePattern.FindStringSubmatch(strings.TrimSpace(remoteURL)); m != nil {
		raw = m[1] + "-" + m[2]
	} else {
		raw = filepath.Base(filepath.Clean(repoPath))
	}

	cleaned := strings.Trim(unsafeSlugChars.ReplaceAllString(strings.ToLower(raw), "-"), "-.")
	if cleaned == "" {
		return "repo"
	}
	return cleaned
}

// Read returns the record for a working directory, or nil, nil when no
// signal file exists.
func (s *Store) Read(_ context.Context, repoPath, remoteURL string) (*model.SignalRecord, error) {
	path := s.Path(repoPath, remoteURL)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read signal file %s: %w", path, err)
	}

	rec, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("read signal file %s: %w", path, err)
	}
	return rec, nil
}

// Write replaces the signal file atomically: the record is written to a
// temporary file in the same directory and renamed over the target.
func (s *Store) Write(_ context.Context, rec model.SignalRecord) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create signal dir %s: %w", s.dir, err)
	}

	data, err := Encode(rec)
	if err != nil {
		return err
	}

	path := s.Path(rec.RepoPath, rec.RemoteURL)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write signal file %s: %w", path, err)
	}
	return nil
}

// Remove deletes the signal file. A missing file is not an error.
func (s *Store) Remove(_ context.Context, repoPath, remoteURL string) error {
	path := s.Path(repoPath, remoteURL)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove signal file %s: %w", path, err)
	}
	return nil
}

// List enumerates the live signal records. Stale files are swept as part of
// the enumeration and unreadable files are skipped.
func (s *Store) List(ctx context.Context) ([]model.SignalRecord, error) {
	records, _, err := s.scan(ctx)
	return records, err
}

// Sweep deletes signal files whose createdAt is older than the max age.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	_, removed, err := s.scan(ctx)
	return removed, err
}

func (s *Store) scan(ctx context.Context) ([]model.SignalRecord, int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("list signal dir %s: %w", s.dir, err)
	}

	cutoff := s.now().Add(-s.maxAge)
	var records []model.SignalRecord
	removed := 0

	for _, entry := range entries {
		if ctx.Err() != nil {
			return records, removed, ctx.Err()
		}
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if filepath.Ext(entry.Name()) != ".json" {
			// Temp files from an interrupted atomic write are named
			// "<target>.json<random>".
			if isWriteLeftover(entry.Name()) && s.removeIfOld(path, entry, cutoff) {
				removed++
			}
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			// Removed or replaced between ReadDir and ReadFile.
			continue
		}

		rec, err := Decode(data)
		if err != nil {
			if s.removeIfOld(path, entry, cutoff) {
				removed++
			}
			continue
		}

		if rec.CreatedAt.Before(cutoff) {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("failed to remove stale signal file", "path", path, "error", err)
				continue
			}
			s.logger.Info("removed stale signal file",
				"path", path,
				"repo_path", rec.RepoPath,
				"created_at", rec.CreatedAt,
			)
			removed++
			continue
		}

		records = append(records, *rec)
	}

	return records, removed, nil
}

func isWriteLeftover(name string) bool {
	i := strings.LastIndex(name, ".json")
	return i > 0 && i+len(".json") < len(name)
}

// removeIfOld deletes an unparseable or leftover file once its mtime passes
// the cutoff. Younger ones may be a write in progress and are left alone.
func (s *Store) removeIfOld(path string, entry fs.DirEntry, cutoff time.Time) bool {
	info, err := entry.Info()
	if err != nil || !info.ModTime().Before(cutoff) {
		return false
	}
	if err := os.Remove(path); err != nil {
		return false
	}
	s.logger.Info("removed stale unreadable signal file", "path", path)
	return true
}

// Encode renders a record as indented, human-inspectable JSON.
func Encode(rec model.SignalRecord) ([]byte, error) {
	rec.CreatedAt = rec.CreatedAt.UTC()
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode signal record: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses signal file content.
func Decode(data []byte) (*model.SignalRecord, error) {
	var rec model.SignalRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode signal record: %w", err)
	}
	if rec.RepoPath == "" {
		return nil, errors.New("decode signal record: missing repoPath")
	}
	return &rec, nil
}
