package model

import "time"

// Client is one long-lived agent connection. Clients are never deleted;
// stale clients simply stop touching LastSeenAt.
type Client struct {
	ID          string
	ClientName  string
	WorkingDir  string
	ConnectedAt time.Time
	LastSeenAt  time.Time
}

// Delivery records that a client has received a sent comment.
type Delivery struct {
	ID          int64
	CommentID   int64
	ClientID    string
	DeliveredAt time.Time
}
