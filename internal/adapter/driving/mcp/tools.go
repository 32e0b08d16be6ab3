package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ericfisherdev/reviewrelay/internal/application"
	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

// RepoPathParams selects a working directory.
type RepoPathParams struct {
	RepoPath string `json:"repo_path,omitempty" jsonschema:"Working directory to check. Defaults to the directory the server was started in."`
}

// CommentParams identifies one comment.
type CommentParams struct {
	CommentID int64 `json:"comment_id" jsonschema:"Id of the review comment"`
}

// NoParams is the input of tools without arguments.
type NoParams struct{}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "check_comments",
		Description: "Receive review comments that were sent for this working directory and not yet " +
			"delivered to this agent. Each comment is returned once per agent.",
	}, s.handleCheckComments)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_pending",
		Description: "Summarise every registered repository that still has unresolved review comments.",
	}, s.handleListPending)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "list_repo_pending",
		Description: "List, grouped by file, the sent comments of a working directory that no agent " +
			"has received yet. Does not mark them delivered.",
	}, s.handleListRepoPending)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_comment",
		Description: "Show one review comment with its status and delivery history.",
	}, s.handleGetComment)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "resolve_comment",
		Description: "Mark a review comment as addressed. Resolving an already resolved comment is a no-op.",
	}, s.handleResolveComment)
}

func (s *Server) handleCheckComments(ctx context.Context, _ *mcp.CallToolRequest, params RepoPathParams) (*mcp.CallToolResult, any, error) {
	clientID, err := s.tracker.Identify(ctx)
	if err != nil {
		return s.errorResult("check_comments", err), nil, nil
	}

	text, err := s.agent.CheckComments(ctx, s.repoPath(params.RepoPath), clientID)
	if err != nil {
		return s.errorResult("check_comments", err), nil, nil
	}
	return textResult(text), nil, nil
}

func (s *Server) handleListPending(ctx context.Context, _ *mcp.CallToolRequest, _ NoParams) (*mcp.CallToolResult, any, error) {
	summaries, err := s.agent.ListAllPending(ctx)
	if err != nil {
		return s.errorResult("list_pending", err), nil, nil
	}
	return textResult(application.FormatPendingSummary(summaries)), nil, nil
}

func (s *Server) handleListRepoPending(ctx context.Context, _ *mcp.CallToolRequest, params RepoPathParams) (*mcp.CallToolResult, any, error) {
	res, groups, err := s.agent.ListRepoPending(ctx, s.repoPath(params.RepoPath))
	if err != nil {
		return s.errorResult("list_repo_pending", err), nil, nil
	}
	return textResult(application.FormatRepoPending(res, groups)), nil, nil
}

func (s *Server) handleGetComment(ctx context.Context, _ *mcp.CallToolRequest, params CommentParams) (*mcp.CallToolResult, any, error) {
	details, err := s.agent.GetDetails(ctx, params.CommentID)
	if err != nil {
		return s.errorResult("get_comment", err), nil, nil
	}
	return textResult(application.FormatDetails(details)), nil, nil
}

func (s *Server) handleResolveComment(ctx context.Context, _ *mcp.CallToolRequest, params CommentParams) (*mcp.CallToolResult, any, error) {
	clientID, err := s.tracker.Identify(ctx)
	if err != nil {
		return s.errorResult("resolve_comment", err), nil, nil
	}

	c, err := s.agent.MarkResolved(ctx, params.CommentID, clientID)
	if err != nil {
		return s.errorResult("resolve_comment", err), nil, nil
	}
	return textResult(application.FormatResolved(c)), nil, nil
}

// errorResult turns a service error into a tool error the agent can act on.
// Expected lookup failures carry a remedy; anything else is logged.
func (s *Server) errorResult(tool string, err error) *mcp.CallToolResult {
	if remedy := application.Remedy(err); remedy != "" {
		return errorText(remedy)
	}
	if errors.Is(err, application.ErrInvalidInput) || errors.Is(err, driven.ErrInvalidTransition) {
		return errorText(err.Error())
	}

	s.logger.Error("tool call failed", "tool", tool, "error", err)
	return errorText(fmt.Sprintf("Error: %v", err))
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
