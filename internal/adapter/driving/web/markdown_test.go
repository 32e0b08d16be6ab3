package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []string
		notWant []string
	}{
		{name: "empty", in: ""},
		{name: "inline code", in: "prefer `errors.Is` here", want: []string{"<code>errors.Is</code>"}},
		{name: "fenced block", in: "```go\nif err != nil {\n}\n```", want: []string{"<pre>", "if err != nil"}},
		{name: "strikethrough", in: "~~old name~~", want: []string{"<del>old name</del>"}},
		{name: "script stripped", in: `<script>alert("x")</script>ok`, want: []string{"ok"}, notWant: []string{"<script"}},
		{name: "js link stripped", in: `[click](javascript:alert(1))`, notWant: []string{"javascript:"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderMarkdown(tt.in)
			if tt.in == "" {
				assert.Empty(t, got)
			}
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, got, w)
			}
		})
	}
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "rename this variable", Excerpt("**rename** this\n\nvariable", 80))
	assert.Equal(t, "abcde…", Excerpt("abcdefghij", 5))
	assert.Equal(t, "", Excerpt("", 10))
	assert.NotContains(t, Excerpt("<script>x</script>ok", 20), "<script>")
}

func TestRequireCSRF(t *testing.T) {
	called := false
	h := requireCSRF(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	post := func(cookie, field string) int {
		called = false
		body := url.Values{csrfFormField: {field}}.Encode()
		req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: cookie})
		}
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusForbidden, post("", "abc"))
	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, post("abc", "xyz"))
	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, post("abc", "abc"))
	assert.True(t, called)
}

func TestCSRFToken_ReusesCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	first := csrfToken(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, first, csrfTokenBytes*2)
	assert.Len(t, rec.Result().Cookies(), 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: first})
	rec = httptest.NewRecorder()
	assert.Equal(t, first, csrfToken(rec, req))
	assert.Empty(t, rec.Result().Cookies())
}
