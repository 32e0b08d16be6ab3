package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
)

// FormatCheckResult renders newly delivered comments for an agent.
func FormatCheckResult(r *CheckResult) string {
	var b strings.Builder

	if len(r.Comments) == 0 {
		fmt.Fprintf(&b, "No new review comments for %s (branch %s).\n", r.Repo.Name, r.Session.Branch)
		return b.String()
	}

	fmt.Fprintf(&b, "%s for %s (branch %s):\n", plural(len(r.Comments), "new review comment"), r.Repo.Name, r.Session.Branch)
	writeGroups(&b, GroupByFile(r.Comments))
	b.WriteString("\nAddress each comment, then call resolve_comment with its id.\n")
	return b.String()
}

// FormatPendingSummary renders ListAllPending output.
func FormatPendingSummary(summaries []model.RepoSummary) string {
	if len(summaries) == 0 {
		return "No repositories have pending review comments.\n"
	}

	var b strings.Builder
	for i, s := range summaries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s (branch %s, session %d)\n", s.Repo.Name, s.Session.Branch, s.Session.ID)
		fmt.Fprintf(&b, "  pending: %d (queued %d, staged %d, sent %d), awaiting delivery: %d\n",
			s.Counts.Pending(), s.Counts.Queued, s.Counts.Staged, s.Counts.Sent, s.Undelivered)
		for _, p := range s.Paths {
			fmt.Fprintf(&b, "  path: %s\n", p)
		}
	}
	return b.String()
}

// FormatRepoPending renders ListRepoPending output.
func FormatRepoPending(res *Resolution, groups []FileGroup) string {
	var b strings.Builder

	total := 0
	for _, g := range groups {
		total += len(g.Comments)
	}
	if total == 0 {
		fmt.Fprintf(&b, "No undelivered comments for %s (branch %s).\n", res.Repo.Name, res.Session.Branch)
		return b.String()
	}

	fmt.Fprintf(&b, "%s awaiting delivery for %s (branch %s) across %s:\n",
		plural(total, "comment"), res.Repo.Name, res.Session.Branch, plural(len(groups), "file"))
	writeGroups(&b, groups)
	return b.String()
}

// FormatDetails renders a single comment with its delivery history.
func FormatDetails(d *CommentDetails) string {
	c := d.Comment
	var b strings.Builder

	fmt.Fprintf(&b, "Comment #%d [%s]\n", c.ID, c.Status)
	fmt.Fprintf(&b, "Location: %s\n", Location(c))
	fmt.Fprintf(&b, "Session: %d\n", c.SessionID)
	fmt.Fprintf(&b, "Created: %s\n", stamp(&c.CreatedAt))
	if c.SentAt != nil {
		fmt.Fprintf(&b, "Sent: %s\n", stamp(c.SentAt))
	}
	if c.DeliveredAt != nil {
		fmt.Fprintf(&b, "First delivered: %s\n", stamp(c.DeliveredAt))
	}
	if c.ResolvedAt != nil {
		by := ""
		if c.ResolvedBy != nil {
			by = " by " + *c.ResolvedBy
		}
		fmt.Fprintf(&b, "Resolved: %s%s\n", stamp(c.ResolvedAt), by)
	}
	fmt.Fprintf(&b, "Deliveries: %d\n", len(d.Deliveries))
	b.WriteString("\n")
	b.WriteString(c.Content)
	b.WriteString("\n")
	return b.String()
}

// FormatResolved confirms a resolution.
func FormatResolved(c *model.Comment) string {
	return fmt.Sprintf("Comment #%d resolved at %s.\n", c.ID, stamp(c.ResolvedAt))
}

// Location renders a comment's anchor, e.g. "main.go:10-12 (new)".
func Location(c model.Comment) string {
	loc := c.FilePath
	if c.LineStart != nil {
		loc += fmt.Sprintf(":%d", *c.LineStart)
		if c.LineEnd != nil && *c.LineEnd != *c.LineStart {
			loc += fmt.Sprintf("-%d", *c.LineEnd)
		}
	}
	if c.Side != nil {
		loc += fmt.Sprintf(" (%s)", *c.Side)
	}
	return loc
}

func writeGroups(b *strings.Builder, groups []FileGroup) {
	for _, g := range groups {
		fmt.Fprintf(b, "\n## %s\n", g.FilePath)
		for _, c := range g.Comments {
			anchor := "file"
			if c.LineStart != nil {
				anchor = strings.TrimPrefix(Location(c), c.FilePath+":")
				anchor = "line " + anchor
			}
			fmt.Fprintf(b, "- [#%d] %s: %s\n", c.ID, anchor, indentContinuation(c.Content))
		}
	}
}

func indentContinuation(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n  ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func stamp(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
