// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// CountsViewModel holds per-status comment counts.
type CountsViewModel struct {
	Queued    int
	Staged    int
	Sent      int
	Resolved  int
	Cancelled int
	Pending   int
}

// RepoCardViewModel holds presentation-ready data for a repository on the
// index page.
type RepoCardViewModel struct {
	Name        string
	RemoteURL   string
	BaseBranch  string
	Paths       []string
	Branch      string // Empty when the repository has no session.
	SessionPath string // Link to the active session page.
	Counts      CountsViewModel
}

// CommentViewModel holds presentation-ready data for one review comment.
type CommentViewModel struct {
	ID          int64
	Location    string
	Status      string
	BodyHTML    string // Sanitized markdown.
	Excerpt     string
	CreatedAt   string
	DeliveredAt string // Empty until first delivery.
	ResolvedBy  string

	CanResolve bool
	ResolveURL string // POST target for the resolve button.
}

// FileViewModel groups the comments of one file.
type FileViewModel struct {
	Path     string
	Comments []CommentViewModel
}

// SessionPageViewModel holds everything the session page renders.
type SessionPageViewModel struct {
	SessionID     int64
	RepoName      string
	Branch        string
	BaseBranch    string
	Counts        CountsViewModel
	Files         []FileViewModel
	CSRFToken     string
	SendStagedURL string // POST target for the send button.
}
