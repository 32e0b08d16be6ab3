package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/reviewrelay/internal/application"
	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// CommentResponse is the JSON representation of a review comment.
type CommentResponse struct {
	ID          int64   `json:"id"`
	SessionID   int64   `json:"session_id"`
	FilePath    string  `json:"file_path"`
	LineStart   *int    `json:"line_start"`
	LineEnd     *int    `json:"line_end"`
	Side        *string `json:"side"`
	Content     string  `json:"content"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	SentAt      *string `json:"sent_at"`
	DeliveredAt *string `json:"delivered_at"`
	ResolvedAt  *string `json:"resolved_at"`
	ResolvedBy  *string `json:"resolved_by"`
}

// CountsResponse is the per-status comment count of a session.
type CountsResponse struct {
	Queued    int `json:"queued"`
	Staged    int `json:"staged"`
	Sent      int `json:"sent"`
	Resolved  int `json:"resolved"`
	Cancelled int `json:"cancelled"`
	Pending   int `json:"pending"`
	Total     int `json:"total"`
}

// SessionResponse is the JSON representation of a review session.
type SessionResponse struct {
	ID        int64  `json:"id"`
	RepoID    int64  `json:"repo_id"`
	Branch    string `json:"branch"`
	CreatedAt string `json:"created_at"`
}

// RepoResponse is the JSON representation of a registered repository.
type RepoResponse struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	RemoteURL     string           `json:"remote_url"`
	BaseBranch    string           `json:"base_branch"`
	Paths         []string         `json:"paths"`
	ActiveSession *SessionResponse `json:"active_session"`
	Counts        *CountsResponse  `json:"counts"`
	CreatedAt     string           `json:"created_at"`
}

// PendingRepoResponse is one entry of the pending overview.
type PendingRepoResponse struct {
	Repo        string          `json:"repo"`
	Paths       []string        `json:"paths"`
	Session     SessionResponse `json:"session"`
	Counts      CountsResponse  `json:"counts"`
	Undelivered int             `json:"undelivered"`
}

// SignalResponse is the JSON representation of a signal file record.
type SignalResponse struct {
	RepoPath     string `json:"repo_path"`
	SessionID    int64  `json:"session_id"`
	PendingCount int    `json:"pending_count"`
	CreatedAt    string `json:"created_at"`
	RemoteURL    string `json:"remote_url"`
}

// RegistrationResponse is the result of registering a working directory.
type RegistrationResponse struct {
	Repo           RepoResponse    `json:"repo"`
	Path           string          `json:"path"`
	Session        SessionResponse `json:"session"`
	CreatedRepo    bool            `json:"created_repo"`
	CreatedSession bool            `json:"created_session"`
}

// CountResponse reports how many comments a bulk operation changed.
type CountResponse struct {
	Count int `json:"count"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// CreateCommentRequest is the JSON body for the create comment endpoint.
type CreateCommentRequest struct {
	FilePath  string  `json:"file_path"`
	Content   string  `json:"content"`
	LineStart *int    `json:"line_start"`
	LineEnd   *int    `json:"line_end"`
	Side      *string `json:"side"`
}

// UpdateCommentRequest is the JSON body for the update comment endpoint.
// Omitted fields are left unchanged.
type UpdateCommentRequest struct {
	Content *string `json:"content"`
	Status  *string `json:"status"`
}

// IDsRequest is the JSON body for bulk stage and send.
type IDsRequest struct {
	IDs []int64 `json:"ids"`
}

// RegisterRequest is the JSON body for the register endpoint.
type RegisterRequest struct {
	Path string `json:"path"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// toCommentResponse converts a domain Comment to its JSON representation.
func toCommentResponse(c model.Comment) CommentResponse {
	var side *string
	if c.Side != nil {
		s := string(*c.Side)
		side = &s
	}

	return CommentResponse{
		ID:          c.ID,
		SessionID:   c.SessionID,
		FilePath:    c.FilePath,
		LineStart:   c.LineStart,
		LineEnd:     c.LineEnd,
		Side:        side,
		Content:     c.Content,
		Status:      string(c.Status),
		CreatedAt:   formatTime(c.CreatedAt),
		SentAt:      formatOptionalTime(c.SentAt),
		DeliveredAt: formatOptionalTime(c.DeliveredAt),
		ResolvedAt:  formatOptionalTime(c.ResolvedAt),
		ResolvedBy:  c.ResolvedBy,
	}
}

func toCommentResponses(comments []model.Comment) []CommentResponse {
	resp := make([]CommentResponse, 0, len(comments))
	for _, c := range comments {
		resp = append(resp, toCommentResponse(c))
	}
	return resp
}

func toCountsResponse(c model.StatusCounts) CountsResponse {
	return CountsResponse{
		Queued:    c.Queued,
		Staged:    c.Staged,
		Sent:      c.Sent,
		Resolved:  c.Resolved,
		Cancelled: c.Cancelled,
		Pending:   c.Pending(),
		Total:     c.Total(),
	}
}

func toSessionResponse(s model.ReviewSession) SessionResponse {
	return SessionResponse{
		ID:        s.ID,
		RepoID:    s.RepoID,
		Branch:    s.Branch,
		CreatedAt: formatTime(s.CreatedAt),
	}
}

func toRepoResponse(repo model.Repository, paths []model.RepoPath) RepoResponse {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, p.Path)
	}

	return RepoResponse{
		ID:         repo.ID,
		Name:       repo.Name,
		RemoteURL:  repo.RemoteURL,
		BaseBranch: repo.BaseBranch,
		Paths:      names,
		CreatedAt:  formatTime(repo.CreatedAt),
	}
}

func toPendingRepoResponse(s model.RepoSummary) PendingRepoResponse {
	paths := s.Paths
	if paths == nil {
		paths = []string{}
	}

	return PendingRepoResponse{
		Repo:        s.Repo.Name,
		Paths:       paths,
		Session:     toSessionResponse(s.Session),
		Counts:      toCountsResponse(s.Counts),
		Undelivered: s.Undelivered,
	}
}

func toSignalResponse(rec model.SignalRecord) SignalResponse {
	return SignalResponse{
		RepoPath:     rec.RepoPath,
		SessionID:    rec.SessionID,
		PendingCount: rec.PendingCount,
		CreatedAt:    formatTime(rec.CreatedAt),
		RemoteURL:    rec.RemoteURL,
	}
}

func toRegistrationResponse(reg *application.Registration, paths []model.RepoPath) RegistrationResponse {
	return RegistrationResponse{
		Repo:           toRepoResponse(reg.Repo, paths),
		Path:           reg.Path,
		Session:        toSessionResponse(reg.Session),
		CreatedRepo:    reg.CreatedRepo,
		CreatedSession: reg.CreatedSession,
	}
}
