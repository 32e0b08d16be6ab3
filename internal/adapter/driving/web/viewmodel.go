package web

import (
	"fmt"
	"time"

	vm "github.com/ericfisherdev/reviewrelay/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/reviewrelay/internal/application"
	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
)

const excerptLength = 96

func toCountsViewModel(c model.StatusCounts) vm.CountsViewModel {
	return vm.CountsViewModel{
		Queued:    c.Queued,
		Staged:    c.Staged,
		Sent:      c.Sent,
		Resolved:  c.Resolved,
		Cancelled: c.Cancelled,
		Pending:   c.Pending(),
	}
}

// toCommentViewModel converts a domain Comment for display. Markdown is
// rendered and sanitized here so components can emit BodyHTML unescaped.
func toCommentViewModel(c model.Comment) vm.CommentViewModel {
	view := vm.CommentViewModel{
		ID:         c.ID,
		Location:   application.Location(c),
		Status:     string(c.Status),
		BodyHTML:   RenderMarkdown(c.Content),
		Excerpt:    Excerpt(c.Content, excerptLength),
		CreatedAt:  c.CreatedAt.UTC().Format(time.RFC3339),
		CanResolve: c.Status.IsPending(),
		ResolveURL: fmt.Sprintf("/comments/%d/resolve", c.ID),
	}
	if c.DeliveredAt != nil {
		view.DeliveredAt = c.DeliveredAt.UTC().Format(time.RFC3339)
	}
	if c.ResolvedBy != nil {
		view.ResolvedBy = *c.ResolvedBy
	}
	return view
}

func toSessionPageViewModel(
	repo model.Repository,
	session model.ReviewSession,
	counts model.StatusCounts,
	comments []model.Comment,
	csrf string,
) vm.SessionPageViewModel {
	groups := application.GroupByFile(comments)
	files := make([]vm.FileViewModel, 0, len(groups))
	for _, g := range groups {
		fv := vm.FileViewModel{Path: g.FilePath, Comments: make([]vm.CommentViewModel, 0, len(g.Comments))}
		for _, c := range g.Comments {
			fv.Comments = append(fv.Comments, toCommentViewModel(c))
		}
		files = append(files, fv)
	}

	return vm.SessionPageViewModel{
		SessionID:     session.ID,
		RepoName:      repo.Name,
		Branch:        session.Branch,
		BaseBranch:    repo.BaseBranch,
		Counts:        toCountsViewModel(counts),
		Files:         files,
		CSRFToken:     csrf,
		SendStagedURL: fmt.Sprintf("/sessions/%d/send", session.ID),
	}
}

func toRepoCardViewModel(repo model.Repository, paths []model.RepoPath, session *model.ReviewSession, counts model.StatusCounts) vm.RepoCardViewModel {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, p.Path)
	}

	card := vm.RepoCardViewModel{
		Name:       repo.Name,
		RemoteURL:  repo.RemoteURL,
		BaseBranch: repo.BaseBranch,
		Paths:      names,
		Counts:     toCountsViewModel(counts),
	}
	if session != nil {
		card.Branch = session.Branch
		card.SessionPath = fmt.Sprintf("/sessions/%d", session.ID)
	}
	return card
}
