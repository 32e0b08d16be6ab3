package web

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	vm "github.com/ericfisherdev/reviewrelay/internal/adapter/driving/web/viewmodel"
)

// pageWriter accumulates the first write error so components can emit markup
// without checking every call.
type pageWriter struct {
	w   io.Writer
	err error
}

func (p *pageWriter) raw(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *pageWriter) text(s string) {
	p.raw(templ.EscapeString(s))
}

func (p *pageWriter) rawf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// Layout wraps body in the page chrome.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		p.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		p.raw(`<title>`)
		p.text(title)
		p.raw(`</title><link rel="stylesheet" href="/static/style.css"></head><body>`)
		p.raw(`<header><a href="/">reviewrelay</a></header><main>`)
		if p.err != nil {
			return p.err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		p.raw(`</main></body></html>`)
		return p.err
	})
}

// IndexPage lists every registered repository.
func IndexPage(cards []vm.RepoCardViewModel) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.raw(`<h1>Repositories</h1>`)
		if len(cards) == 0 {
			p.raw(`<p class="muted">No repositories registered. Run <code>reviewrelay register</code> inside a checkout.</p>`)
			return p.err
		}

		for _, c := range cards {
			p.raw(`<div class="card"><h2>`)
			if c.SessionPath != "" {
				p.rawf(`<a href="%s">`, templ.EscapeString(c.SessionPath))
				p.text(c.Name)
				p.raw(`</a>`)
			} else {
				p.text(c.Name)
			}
			p.raw(`</h2><div class="muted">`)
			if c.Branch != "" {
				p.raw(`branch `)
				p.text(c.Branch)
				p.raw(` against `)
			} else {
				p.raw(`base `)
			}
			p.text(c.BaseBranch)
			if c.RemoteURL != "" {
				p.raw(` &middot; `)
				p.text(c.RemoteURL)
			}
			p.raw(`</div>`)
			writeCounts(p, c.Counts)
			if len(c.Paths) > 0 {
				p.raw(`<div class="muted">`)
				p.text(strings.Join(c.Paths, ", "))
				p.raw(`</div>`)
			}
			p.raw(`</div>`)
		}
		return p.err
	})
}

// SessionPage renders the comments of one review session grouped by file.
func SessionPage(page vm.SessionPageViewModel) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.raw(`<h1>`)
		p.text(page.RepoName)
		p.raw(`</h1><div class="muted">branch `)
		p.text(page.Branch)
		p.raw(` against `)
		p.text(page.BaseBranch)
		p.raw(`</div>`)
		writeCounts(p, page.Counts)

		if page.Counts.Staged > 0 {
			p.rawf(`<form class="inline" method="post" action="%s">`, templ.EscapeString(page.SendStagedURL))
			writeCSRFField(p, page.CSRFToken)
			p.rawf(`<button type="submit">Send %d staged</button></form>`, page.Counts.Staged)
		}

		if len(page.Files) == 0 {
			p.raw(`<p class="muted">No comments in this session.</p>`)
			return p.err
		}

		for _, f := range page.Files {
			p.raw(`<div class="file">`)
			p.text(f.Path)
			p.raw(`</div>`)
			for _, c := range f.Comments {
				writeComment(p, c, page.CSRFToken)
			}
		}
		return p.err
	})
}

func writeCounts(p *pageWriter, c vm.CountsViewModel) {
	p.rawf(`<div class="counts"><span>%d pending</span><span>%d queued</span><span>%d staged</span><span>%d sent</span><span>%d resolved</span></div>`,
		c.Pending, c.Queued, c.Staged, c.Sent, c.Resolved)
}

func writeCSRFField(p *pageWriter, token string) {
	p.rawf(`<input type="hidden" name="%s" value="%s">`, csrfFormField, templ.EscapeString(token))
}

func writeComment(p *pageWriter, c vm.CommentViewModel, csrf string) {
	p.rawf(`<div class="card comment" id="comment-%d"><div>`, c.ID)
	p.rawf(`<span class="status status-%s">`, templ.EscapeString(c.Status))
	p.text(c.Status)
	p.rawf(`</span> <span class="muted">#%d `, c.ID)
	p.text(c.Location)
	p.raw(`</span></div>`)

	// BodyHTML is sanitized by RenderMarkdown.
	p.raw(`<div class="body">`)
	p.raw(c.BodyHTML)
	p.raw(`</div><div class="muted">created `)
	p.text(c.CreatedAt)
	if c.DeliveredAt != "" {
		p.raw(` &middot; delivered `)
		p.text(c.DeliveredAt)
	}
	if c.ResolvedBy != "" {
		p.raw(` &middot; resolved by `)
		p.text(c.ResolvedBy)
	}
	p.raw(`</div>`)

	if c.CanResolve {
		p.rawf(`<form class="inline" method="post" action="%s">`, templ.EscapeString(c.ResolveURL))
		writeCSRFField(p, csrf)
		p.raw(`<button type="submit">Resolve</button></form>`)
	}
	p.raw(`</div>`)
}
