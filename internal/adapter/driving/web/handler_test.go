package web_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewrelay/internal/adapter/driven/signalfile"
	"github.com/ericfisherdev/reviewrelay/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reviewrelay/internal/adapter/driving/web"
	"github.com/ericfisherdev/reviewrelay/internal/application"
	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
)

type webEnv struct {
	server   *httptest.Server
	client   *http.Client
	comments *application.CommentService
	session  *model.ReviewSession
}

func newWebEnv(t *testing.T) *webEnv {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.NewDB(ctx, filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.RunMigrations(db.Writer))
	t.Cleanup(func() { _ = db.Close() })

	repoStore := sqlite.NewRepoRepo(db)
	sessionStore := sqlite.NewSessionRepo(db)
	commentStore := sqlite.NewCommentRepo(db)
	signalStore := signalfile.NewStore(filepath.Join(t.TempDir(), "signals"), 0, nil)

	signals := application.NewSignalService(repoStore, sessionStore, commentStore, signalStore)
	comments := application.NewCommentService(commentStore, sessionStore, signals)

	repo, err := repoStore.Create(ctx, model.Repository{Name: "acme/app", RemoteURL: "git@github.com:acme/app.git", BaseBranch: "main"})
	require.NoError(t, err)
	_, err = repoStore.AddPath(ctx, repo.ID, "/work/app")
	require.NoError(t, err)
	session, err := sessionStore.Create(ctx, repo.ID, "feature")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := http.NewServeMux()
	web.RegisterRoutes(mux, web.NewHandler(comments, repoStore, sessionStore, logger))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &webEnv{server: server, client: client, comments: comments, session: session}
}

func (e *webEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *webEnv) post(t *testing.T, path, token string) *http.Response {
	t.Helper()
	form := url.Values{"csrf_token": {token}}
	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "reviewrelay_csrf", Value: token})
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp
}

func (e *webEnv) addComment(t *testing.T, file, content string) *model.Comment {
	t.Helper()
	line := 7
	c, err := e.comments.Create(context.Background(), model.NewComment{
		SessionID: e.session.ID,
		FilePath:  file,
		Content:   content,
		LineStart: &line,
	})
	require.NoError(t, err)
	return c
}

func sessionPath(id int64) string {
	return "/sessions/" + strconv.FormatInt(id, 10)
}

func csrfCookie(resp *http.Response) string {
	for _, c := range resp.Cookies() {
		if c.Name == "reviewrelay_csrf" {
			return c.Value
		}
	}
	return ""
}

func TestIndex(t *testing.T) {
	env := newWebEnv(t)
	env.addComment(t, "main.go", "tidy")

	resp, body := env.get(t, "/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "acme/app")
	assert.Contains(t, body, `href="`+sessionPath(env.session.ID)+`"`)
	assert.Contains(t, body, "1 pending")
	assert.Contains(t, body, "/work/app")
}

func TestSessionPage_RendersMarkdownGroupedByFile(t *testing.T) {
	env := newWebEnv(t)
	env.addComment(t, "b.go", "use **errors.Is** here")
	env.addComment(t, "a.go", "<script>alert(1)</script>drop this")

	resp, body := env.get(t, sessionPath(env.session.ID))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<strong>errors.Is</strong>")
	assert.NotContains(t, body, "<script>alert")
	assert.Less(t, strings.Index(body, "a.go"), strings.Index(body, "b.go"))
	assert.Contains(t, body, "a.go:7")
	assert.NotEmpty(t, csrfCookie(resp))
}

func TestSessionPage_NotFound(t *testing.T) {
	env := newWebEnv(t)

	resp, _ := env.get(t, "/sessions/9999")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.get(t, "/sessions/abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResolveComment(t *testing.T) {
	env := newWebEnv(t)
	c := env.addComment(t, "main.go", "tidy")

	page, _ := env.get(t, sessionPath(env.session.ID))
	token := csrfCookie(page)

	resp := env.post(t, "/comments/"+strconv.FormatInt(c.ID, 10)+"/resolve", token)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), sessionPath(env.session.ID))

	got, err := env.comments.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CommentStatusResolved, got.Status)
	require.NotNil(t, got.ResolvedBy)
	assert.Equal(t, application.ReviewerIdentity, *got.ResolvedBy)
}

func TestResolveComment_RejectsMissingCSRF(t *testing.T) {
	env := newWebEnv(t)
	c := env.addComment(t, "main.go", "tidy")

	resp := env.post(t, "/comments/"+strconv.FormatInt(c.ID, 10)+"/resolve", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	got, err := env.comments.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CommentStatusQueued, got.Status)
}

func TestSendStaged(t *testing.T) {
	env := newWebEnv(t)
	c := env.addComment(t, "main.go", "tidy")
	_, err := env.comments.Stage(context.Background(), []int64{c.ID})
	require.NoError(t, err)

	page, body := env.get(t, sessionPath(env.session.ID))
	assert.Contains(t, body, "Send 1 staged")

	resp := env.post(t, sessionPath(env.session.ID)+"/send", csrfCookie(page))
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	got, err := env.comments.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CommentStatusSent, got.Status)
}

func TestStaticStylesheet(t *testing.T) {
	env := newWebEnv(t)

	resp, body := env.get(t, "/static/style.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, ".comment")
}
