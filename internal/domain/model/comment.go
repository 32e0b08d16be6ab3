package model

import "time"

// Comment is a reviewer note anchored to a file, optionally to a line range.
// A nil LineStart marks a file-level comment.
type Comment struct {
	ID          int64
	SessionID   int64
	FilePath    string
	LineStart   *int
	LineEnd     *int
	Side        *DiffSide
	Content     string
	Status      CommentStatus
	CreatedAt   time.Time
	SentAt      *time.Time
	DeliveredAt *time.Time
	ResolvedAt  *time.Time
	ResolvedBy  *string
}

// NewComment holds the fields a reviewer supplies when creating a comment.
type NewComment struct {
	SessionID int64
	FilePath  string
	Content   string
	LineStart *int
	LineEnd   *int
	Side      *DiffSide
}

// CommentPatch is a partial update. Nil fields are left unchanged.
type CommentPatch struct {
	Content *string
	Status  *CommentStatus
}

// StatusCounts summarises how many comments of a session are in each status.
type StatusCounts struct {
	Queued    int
	Staged    int
	Sent      int
	Resolved  int
	Cancelled int
}

// Pending returns the number of outstanding comments.
func (c StatusCounts) Pending() int {
	return c.Queued + c.Staged + c.Sent
}

// Total returns the number of comments across all statuses.
func (c StatusCounts) Total() int {
	return c.Pending() + c.Resolved + c.Cancelled
}
