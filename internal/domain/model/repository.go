package model

import "time"

// Repository is a logical project. Several working directories (worktrees,
// separate checkouts) can map to the same repository.
type Repository struct {
	ID         int64
	Name       string
	RemoteURL  string // Empty when the checkout has no origin remote.
	BaseBranch string
	CreatedAt  time.Time
}

// RepoPath is one filesystem location registered for a repository.
type RepoPath struct {
	ID        int64
	RepoID    int64
	Path      string
	CreatedAt time.Time
}

// ReviewSession is one reviewed branch within a repository. The most recently
// created session of a repository is its active session.
type ReviewSession struct {
	ID        int64
	RepoID    int64
	Branch    string
	CreatedAt time.Time
}
