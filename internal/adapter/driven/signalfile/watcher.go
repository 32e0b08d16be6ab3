package signalfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
)

// Subscription is an active watch on one signal file. Close releases the
// underlying OS watch handle.
type Subscription struct {
	path     string
	dir      string
	fsw      *fsnotify.Watcher
	onSignal func(model.SignalRecord)
	logger   *slog.Logger

	last []byte

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Watch subscribes to changes of the signal file at path. onSignal runs on
// the subscription goroutine for every content change whose pendingCount is
// positive. The content present at subscribe time primes the duplicate
// filter and is not reported.
//
// When the file does not exist Watch returns nil, nil: there is nothing to
// watch yet and the caller may try again later.
//
// The parent directory is watched and events are filtered by name, so the
// subscription survives the rename-over-target pattern writers use. Removing
// the directory ends the subscription.
func Watch(ctx context.Context, path string, onSignal func(model.SignalRecord), logger *slog.Logger) (*Subscription, error) {
	return watch(ctx, path, onSignal, logger, false)
}

func watch(ctx context.Context, path string, onSignal func(model.SignalRecord), logger *slog.Logger, reportInitial bool) (*Subscription, error) {
	if logger == nil {
		logger = slog.Default()
	}
	path = filepath.Clean(path)

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat signal file %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	sub := &Subscription{
		path:     path,
		dir:      dir,
		fsw:      fsw,
		onSignal: onSignal,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	// Read after the watch is in place so a write landing in between is
	// either seen here or delivered as an event.
	if reportInitial {
		sub.handleChange()
	} else if initial, err := os.ReadFile(path); err == nil {
		if _, err := Decode(initial); err == nil {
			sub.last = initial
		}
	}

	go sub.run(ctx)

	return sub, nil
}

// Path returns the watched file.
func (s *Subscription) Path() string {
	return s.path
}

// Done is closed once the subscription goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close stops the subscription and waits for its goroutine to exit. It is
// safe to call more than once.
func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		err = s.fsw.Close()
	})
	<-s.done
	return err
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)

	release := func() {
		s.closeOnce.Do(func() {
			close(s.stop)
			_ = s.fsw.Close()
		})
	}

	for {
		select {
		case <-ctx.Done():
			release()
			return
		case <-s.stop:
			return
		case event, ok := <-s.fsw.Events:
			if !ok {
				return
			}
			name := filepath.Clean(event.Name)
			if name == s.dir && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
				s.logger.Debug("signal directory went away", "dir", s.dir)
				release()
				return
			}
			if name != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.handleChange()
		case err, ok := <-s.fsw.Errors:
			if !ok {
				return
			}
			s.logger.Debug("signal watcher error", "path", s.path, "error", err)
		}
	}
}

// handleChange re-reads the file. Missing, partial, or malformed content is
// skipped silently; the writer runs in another process and the next event
// will carry the complete file.
func (s *Subscription) handleChange() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	if bytes.Equal(data, s.last) {
		return
	}

	rec, err := Decode(data)
	if err != nil {
		s.logger.Debug("ignoring unreadable signal file", "path", s.path, "error", err)
		return
	}
	s.last = data

	if rec.PendingCount > 0 {
		s.onSignal(*rec)
	}
}

// Follow keeps a subscription on path alive until ctx is canceled. While the
// file is absent it re-checks every recheck interval; once subscribed it
// blocks until ctx ends or the subscription drops, then re-arms.
//
// Content found by the very first subscribe is reported only when
// reportExisting is set. Every later subscribe reports what it finds, since
// that content appeared while nothing was watching. Follow returns ctx.Err().
func Follow(ctx context.Context, path string, recheck time.Duration, reportExisting bool, onSignal func(model.SignalRecord), logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if recheck <= 0 {
		recheck = 5 * time.Second
	}

	ticker := time.NewTicker(recheck)
	defer ticker.Stop()

	report := reportExisting
	for {
		sub, err := watch(ctx, path, onSignal, logger, report)
		if err != nil {
			logger.Debug("signal watch unavailable", "path", path, "error", err)
		}
		report = true
		if sub != nil {
			logger.Info("watching signal file", "path", path)
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return ctx.Err()
			case <-sub.Done():
				logger.Info("signal watch dropped, re-arming", "path", path)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
