package model

import "time"

// SignalRecord is the content of a signal file. It mirrors the pending
// comment count of a repository's active session so that watcher processes
// can wake up without querying the database. It is a hint, never the truth.
type SignalRecord struct {
	RepoPath     string    `json:"repoPath"`
	SessionID    int64     `json:"sessionId"`
	PendingCount int       `json:"pendingCount"`
	CreatedAt    time.Time `json:"createdAt"`
	RemoteURL    string    `json:"remoteUrl"`
}

// RepoSummary is the per-repository pending overview shown to agents.
type RepoSummary struct {
	Repo        Repository
	Paths       []string
	Session     ReviewSession
	Counts      StatusCounts
	Undelivered int
}
