package model

// CommentStatus represents where a review comment is in its lifecycle.
type CommentStatus string

const (
	CommentStatusQueued    CommentStatus = "queued"
	CommentStatusStaged    CommentStatus = "staged"
	CommentStatusSent      CommentStatus = "sent"
	CommentStatusResolved  CommentStatus = "resolved"
	CommentStatusCancelled CommentStatus = "cancelled"
)

// PendingStatuses are the statuses that count as outstanding work for a repo.
var PendingStatuses = []CommentStatus{
	CommentStatusQueued,
	CommentStatusStaged,
	CommentStatusSent,
}

// Valid reports whether s is a known status.
func (s CommentStatus) Valid() bool {
	switch s {
	case CommentStatusQueued, CommentStatusStaged, CommentStatusSent,
		CommentStatusResolved, CommentStatusCancelled:
		return true
	}
	return false
}

// IsPending reports whether a comment in status s is still outstanding,
// i.e. neither resolved nor cancelled.
func (s CommentStatus) IsPending() bool {
	return s == CommentStatusQueued || s == CommentStatusStaged || s == CommentStatusSent
}

// IsTerminal reports whether no further transitions are allowed out of s.
func (s CommentStatus) IsTerminal() bool {
	return s == CommentStatusResolved || s == CommentStatusCancelled
}

// transitions lists the allowed target statuses for each source status.
var transitions = map[CommentStatus][]CommentStatus{
	CommentStatusQueued: {CommentStatusStaged, CommentStatusSent, CommentStatusCancelled, CommentStatusResolved},
	CommentStatusStaged: {CommentStatusQueued, CommentStatusSent, CommentStatusCancelled, CommentStatusResolved},
	CommentStatusSent:   {CommentStatusResolved, CommentStatusCancelled},
}

// CanTransition reports whether a comment may move from one status to another.
// Staying in the same status is always allowed.
func CanTransition(from, to CommentStatus) bool {
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// DiffSide identifies which side of a diff a line comment is anchored to.
type DiffSide string

const (
	DiffSideOld DiffSide = "old"
	DiffSideNew DiffSide = "new"
)
