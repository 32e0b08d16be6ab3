package application

import (
	"errors"
	"fmt"

	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

// ErrInvalidInput marks a request the caller must correct before retrying.
var ErrInvalidInput = errors.New("invalid input")

// RepoNotFoundError reports that no repository is registered at Path.
type RepoNotFoundError struct {
	Path string
}

func (e *RepoNotFoundError) Error() string {
	return fmt.Sprintf("no repository registered for path %s", e.Path)
}

func (e *RepoNotFoundError) Unwrap() error { return driven.ErrRepoNotFound }

// SessionNotFoundError reports that a repository has no review session yet.
type SessionNotFoundError struct {
	RepoName string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("repository %s has no review session", e.RepoName)
}

func (e *SessionNotFoundError) Unwrap() error { return driven.ErrSessionNotFound }

// CommentNotFoundError reports an unknown comment id.
type CommentNotFoundError struct {
	ID int64
}

func (e *CommentNotFoundError) Error() string {
	return fmt.Sprintf("comment %d not found", e.ID)
}

func (e *CommentNotFoundError) Unwrap() error { return driven.ErrCommentNotFound }

// StorageError wraps a database failure. It is a fault, not a user error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// CoordinationError wraps a signal file failure. Callers degrade it to a
// warning; it never fails the comment mutation that triggered it.
type CoordinationError struct {
	Op  string
	Err error
}

func (e *CoordinationError) Error() string {
	return fmt.Sprintf("signal coordination: %s: %v", e.Op, e.Err)
}

func (e *CoordinationError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is one of the expected lookup failures.
func IsNotFound(err error) bool {
	return errors.Is(err, driven.ErrRepoNotFound) ||
		errors.Is(err, driven.ErrSessionNotFound) ||
		errors.Is(err, driven.ErrCommentNotFound)
}

// Remedy returns user-facing guidance for expected lookup failures, or ""
// when err is not one of them.
func Remedy(err error) string {
	var repoErr *RepoNotFoundError
	var sessionErr *SessionNotFoundError
	var commentErr *CommentNotFoundError

	switch {
	case errors.As(err, &repoErr):
		return fmt.Sprintf("No repository is registered for %s. Open the review UI for this checkout "+
			"(or run `reviewrelay register %s`) and try again.", repoErr.Path, repoErr.Path)
	case errors.As(err, &sessionErr):
		return fmt.Sprintf("Repository %s has no review session yet. Open the review UI to start one.", sessionErr.RepoName)
	case errors.As(err, &commentErr):
		return fmt.Sprintf("Comment %d does not exist. Use list_repo_pending to see current comment ids.", commentErr.ID)
	}
	return ""
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
