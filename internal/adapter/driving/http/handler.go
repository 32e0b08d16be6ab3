// Package httphandler is the JSON API the reviewer UI uses to manage review
// comments.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/reviewrelay/internal/application"
	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

const healthPath = "/api/v1/health"

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	comments     *application.CommentService
	agent        *application.AgentService
	signals      *application.SignalService
	registration *application.RegistrationService
	repoStore    driven.RepoStore
	sessionStore driven.SessionStore
	logger       *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
// registration may be nil, which disables the register endpoint.
func NewHandler(
	comments *application.CommentService,
	agent *application.AgentService,
	signals *application.SignalService,
	registration *application.RegistrationService,
	repoStore driven.RepoStore,
	sessionStore driven.SessionStore,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		comments:     comments,
		agent:        agent,
		signals:      signals,
		registration: registration,
		repoStore:    repoStore,
		sessionStore: sessionStore,
		logger:       logger,
	}
}

// RegisterRoutes registers all API routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET "+healthPath, h.Health)

	mux.HandleFunc("GET /api/v1/repos", h.ListRepos)
	mux.HandleFunc("POST /api/v1/repos", h.RegisterRepo)
	mux.HandleFunc("GET /api/v1/repos/{id}/sessions", h.ListSessions)

	mux.HandleFunc("GET /api/v1/sessions/{id}/comments", h.ListComments)
	mux.HandleFunc("POST /api/v1/sessions/{id}/comments", h.CreateComment)
	mux.HandleFunc("GET /api/v1/sessions/{id}/counts", h.Counts)
	mux.HandleFunc("POST /api/v1/sessions/{id}/send", h.SendStaged)

	mux.HandleFunc("GET /api/v1/comments/{id}", h.GetComment)
	mux.HandleFunc("PATCH /api/v1/comments/{id}", h.UpdateComment)
	mux.HandleFunc("DELETE /api/v1/comments/{id}", h.DeleteComment)
	mux.HandleFunc("POST /api/v1/comments/{id}/resolve", h.ResolveComment)
	mux.HandleFunc("POST /api/v1/comments/stage", h.StageComments)
	mux.HandleFunc("POST /api/v1/comments/send", h.SendComments)

	mux.HandleFunc("GET /api/v1/pending", h.ListPending)
	mux.HandleFunc("GET /api/v1/signals", h.ListSignals)
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return Wrap(mux, logger)
}

// Wrap applies the standard middleware chain to next.
func Wrap(next http.Handler, logger *slog.Logger) http.Handler {
	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, next)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListRepos returns every registered repository with its paths, active
// session, and that session's counts.
func (h *Handler) ListRepos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	repos, err := h.repoStore.ListAll(ctx)
	if err != nil {
		h.writeServiceError(w, "list repositories", err)
		return
	}

	resp := make([]RepoResponse, 0, len(repos))
	for _, repo := range repos {
		paths, err := h.repoStore.ListPaths(ctx, repo.ID)
		if err != nil {
			h.writeServiceError(w, "list repository paths", err)
			return
		}
		item := toRepoResponse(repo, paths)

		session, err := h.sessionStore.GetActive(ctx, repo.ID)
		if err != nil {
			h.writeServiceError(w, "get active session", err)
			return
		}
		if session != nil {
			s := toSessionResponse(*session)
			item.ActiveSession = &s

			counts, err := h.comments.Counts(ctx, session.ID)
			if err != nil {
				h.writeServiceError(w, "count comments", err)
				return
			}
			c := toCountsResponse(counts)
			item.Counts = &c
		}

		resp = append(resp, item)
	}

	writeJSON(w, http.StatusOK, resp)
}

// RegisterRepo registers the git checkout at the given path.
func (h *Handler) RegisterRepo(w http.ResponseWriter, r *http.Request) {
	if h.registration == nil {
		writeError(w, http.StatusNotImplemented, "registration is not available")
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	reg, err := h.registration.Register(r.Context(), req.Path)
	if err != nil {
		h.writeServiceError(w, "register repository", err)
		return
	}

	paths, err := h.repoStore.ListPaths(r.Context(), reg.Repo.ID)
	if err != nil {
		h.writeServiceError(w, "list repository paths", err)
		return
	}

	status := http.StatusOK
	if reg.CreatedRepo || reg.CreatedSession {
		status = http.StatusCreated
	}
	writeJSON(w, status, toRegistrationResponse(reg, paths))
}

// ListSessions returns a repository's review sessions, newest first.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	repoID, ok := pathID(w, r)
	if !ok {
		return
	}

	sessions, err := h.sessionStore.ListByRepo(r.Context(), repoID)
	if err != nil {
		h.writeServiceError(w, "list sessions", err)
		return
	}

	resp := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListComments returns a session's comments, optionally filtered by the
// status query parameter.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r)
	if !ok {
		return
	}

	var (
		comments []model.Comment
		err      error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		comments, err = h.comments.ListBySessionAndStatus(r.Context(), sessionID, model.CommentStatus(status))
	} else {
		comments, err = h.comments.ListBySession(r.Context(), sessionID)
	}
	if err != nil {
		h.writeServiceError(w, "list comments", err)
		return
	}

	writeJSON(w, http.StatusOK, toCommentResponses(comments))
}

// CreateComment adds a queued comment to a session.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	nc := model.NewComment{
		SessionID: sessionID,
		FilePath:  req.FilePath,
		Content:   req.Content,
		LineStart: req.LineStart,
		LineEnd:   req.LineEnd,
	}
	if req.Side != nil {
		side := model.DiffSide(*req.Side)
		nc.Side = &side
	}

	c, err := h.comments.Create(r.Context(), nc)
	if err != nil {
		h.writeServiceError(w, "create comment", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCommentResponse(*c))
}

// Counts returns per-status comment counts for a session.
func (h *Handler) Counts(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r)
	if !ok {
		return
	}

	counts, err := h.comments.Counts(r.Context(), sessionID)
	if err != nil {
		h.writeServiceError(w, "count comments", err)
		return
	}
	writeJSON(w, http.StatusOK, toCountsResponse(counts))
}

// SendStaged sends every staged comment of a session.
func (h *Handler) SendStaged(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r)
	if !ok {
		return
	}

	n, err := h.comments.SendStaged(r.Context(), sessionID)
	if err != nil {
		h.writeServiceError(w, "send staged comments", err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

// GetComment returns a single comment.
func (h *Handler) GetComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	c, err := h.comments.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "get comment", err)
		return
	}
	writeJSON(w, http.StatusOK, toCommentResponse(*c))
}

// UpdateComment edits a comment's content and/or status.
func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == nil && req.Status == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	patch := model.CommentPatch{Content: req.Content}
	if req.Status != nil {
		status := model.CommentStatus(*req.Status)
		patch.Status = &status
	}

	c, err := h.comments.Update(r.Context(), id, patch)
	if err != nil {
		h.writeServiceError(w, "update comment", err)
		return
	}
	writeJSON(w, http.StatusOK, toCommentResponse(*c))
}

// DeleteComment removes a queued comment. Comments past queued answer 409.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	deleted, err := h.comments.Delete(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "delete comment", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusConflict, "only queued comments can be deleted")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResolveComment marks a comment resolved on behalf of the reviewer.
func (h *Handler) ResolveComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	c, err := h.comments.MarkResolved(r.Context(), id, application.ReviewerIdentity)
	if err != nil {
		h.writeServiceError(w, "resolve comment", err)
		return
	}
	writeJSON(w, http.StatusOK, toCommentResponse(*c))
}

// StageComments moves the given queued comments to staged.
func (h *Handler) StageComments(w http.ResponseWriter, r *http.Request) {
	ids, ok := decodeIDs(w, r)
	if !ok {
		return
	}

	n, err := h.comments.Stage(r.Context(), ids)
	if err != nil {
		h.writeServiceError(w, "stage comments", err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

// SendComments marks the given queued or staged comments as sent.
func (h *Handler) SendComments(w http.ResponseWriter, r *http.Request) {
	ids, ok := decodeIDs(w, r)
	if !ok {
		return
	}

	n, err := h.comments.MarkSent(r.Context(), ids)
	if err != nil {
		h.writeServiceError(w, "send comments", err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

// ListPending returns the per-repository pending overview.
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.agent.ListAllPending(r.Context())
	if err != nil {
		h.writeServiceError(w, "list pending", err)
		return
	}

	resp := make([]PendingRepoResponse, 0, len(summaries))
	for _, s := range summaries {
		resp = append(resp, toPendingRepoResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListSignals returns the live signal file records.
func (h *Handler) ListSignals(w http.ResponseWriter, r *http.Request) {
	records, err := h.signals.List(r.Context())
	if err != nil {
		h.writeServiceError(w, "list signals", err)
		return
	}

	resp := make([]SignalResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toSignalResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeServiceError maps application errors to HTTP status codes. Anything
// unrecognised is logged and reported as a 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, application.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, driven.ErrNotGitCheckout):
		writeError(w, http.StatusBadRequest, err.Error())
	case application.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, driven.ErrInvalidTransition), errors.Is(err, driven.ErrRepoPathExists):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pathID parses the {id} path value, writing a 400 when it is invalid.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func decodeIDs(w http.ResponseWriter, r *http.Request) ([]int64, bool) {
	var req IDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids are required")
		return nil, false
	}
	return req.IDs, true
}
