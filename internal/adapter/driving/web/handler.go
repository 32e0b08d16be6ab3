// Package web serves the reviewer's HTML pages.
package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/a-h/templ"

	vm "github.com/ericfisherdev/reviewrelay/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/reviewrelay/internal/application"
	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

// Handler is the web driving adapter that serves HTML via templ components.
type Handler struct {
	comments     *application.CommentService
	repoStore    driven.RepoStore
	sessionStore driven.SessionStore
	logger       *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	comments *application.CommentService,
	repoStore driven.RepoStore,
	sessionStore driven.SessionStore,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		comments:     comments,
		repoStore:    repoStore,
		sessionStore: sessionStore,
		logger:       logger,
	}
}

// Index renders every registered repository with its active session counts.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	repos, err := h.repoStore.ListAll(ctx)
	if err != nil {
		h.serverError(w, "failed to list repositories", err)
		return
	}

	cards := make([]vm.RepoCardViewModel, 0, len(repos))
	for _, repo := range repos {
		paths, err := h.repoStore.ListPaths(ctx, repo.ID)
		if err != nil {
			h.serverError(w, "failed to list repository paths", err)
			return
		}
		session, err := h.sessionStore.GetActive(ctx, repo.ID)
		if err != nil {
			h.serverError(w, "failed to load active session", err)
			return
		}

		var counts model.StatusCounts
		if session != nil {
			counts, err = h.comments.Counts(ctx, session.ID)
			if err != nil {
				h.serverError(w, "failed to count comments", err)
				return
			}
		}
		cards = append(cards, toRepoCardViewModel(repo, paths, session, counts))
	}

	h.render(w, r, Layout("reviewrelay", IndexPage(cards)))
}

// Session renders one review session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	session, err := h.sessionStore.Get(ctx, id)
	if err != nil {
		h.serverError(w, "failed to load session", err)
		return
	}
	if session == nil {
		http.NotFound(w, r)
		return
	}

	repo, err := h.repoStore.Get(ctx, session.RepoID)
	if err != nil {
		h.serverError(w, "failed to load repository", err)
		return
	}
	if repo == nil {
		http.NotFound(w, r)
		return
	}

	comments, err := h.comments.ListBySession(ctx, id)
	if err != nil {
		h.serverError(w, "failed to list comments", err)
		return
	}
	counts, err := h.comments.Counts(ctx, id)
	if err != nil {
		h.serverError(w, "failed to count comments", err)
		return
	}

	page := toSessionPageViewModel(*repo, *session, counts, comments, csrfToken(w, r))
	h.render(w, r, Layout(repo.Name+" · "+session.Branch, SessionPage(page)))
}

// ResolveComment handles the resolve button and redirects back to the
// comment's session.
func (h *Handler) ResolveComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	c, err := h.comments.MarkResolved(r.Context(), id, application.ReviewerIdentity)
	if err != nil {
		h.actionError(w, r, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/sessions/%d#comment-%d", c.SessionID, c.ID), http.StatusSeeOther)
}

// SendStaged handles the send button of a session page.
func (h *Handler) SendStaged(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	n, err := h.comments.SendStaged(r.Context(), id)
	if err != nil {
		h.actionError(w, r, err)
		return
	}
	h.logger.Info("sent staged comments", "session_id", id, "count", n)

	http.Redirect(w, r, fmt.Sprintf("/sessions/%d", id), http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render page", "path", r.URL.Path, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func (h *Handler) actionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case application.IsNotFound(err):
		http.NotFound(w, r)
	case errors.Is(err, driven.ErrInvalidTransition), errors.Is(err, application.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.serverError(w, "web action failed", err)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
