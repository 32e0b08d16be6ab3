package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

// DefaultBaseBranch is used when the hosted default branch is unknown.
const DefaultBaseBranch = "main"

// detachedBranch names sessions created from a detached HEAD.
const detachedBranch = "HEAD"

var remoteNamePattern = regexp.MustCompile(`[:/]([^/:]+/[^/:]+?)(?:\.git)?/?$`)

// Registration is the outcome of registering a working directory.
type Registration struct {
	Repo           model.Repository
	Path           string
	Session        model.ReviewSession
	CreatedRepo    bool
	CreatedSession bool
}

// RegistrationService maps local checkouts to repositories and opens review
// sessions for their current branch.
type RegistrationService struct {
	git          driven.GitInspector
	metadata     driven.RepoMetadataClient
	repoStore    driven.RepoStore
	sessionStore driven.SessionStore
	signals      *SignalService
}

// NewRegistrationService creates a new RegistrationService. metadata may be
// nil, in which case new repositories get DefaultBaseBranch.
func NewRegistrationService(
	git driven.GitInspector,
	metadata driven.RepoMetadataClient,
	repoStore driven.RepoStore,
	sessionStore driven.SessionStore,
	signals *SignalService,
) *RegistrationService {
	return &RegistrationService{
		git:          git,
		metadata:     metadata,
		repoStore:    repoStore,
		sessionStore: sessionStore,
		signals:      signals,
	}
}

// Register inspects the checkout containing path, finds or creates its
// repository (by remote URL, else by toplevel path), registers the toplevel
// as a repo path, and creates a session for the current branch unless the
// active session already targets it.
func (s *RegistrationService) Register(ctx context.Context, path string) (*Registration, error) {
	info, err := s.git.Inspect(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("inspect checkout: %w", err)
	}

	reg := &Registration{Path: info.Toplevel}

	repo, err := s.findRepo(ctx, info)
	if err != nil {
		return nil, err
	}
	if repo == nil {
		repo, err = s.repoStore.Create(ctx, model.Repository{
			Name:       RepoDisplayName(info.RemoteURL, info.Toplevel),
			RemoteURL:  info.RemoteURL,
			BaseBranch: s.baseBranch(ctx, info.RemoteURL),
		})
		if err != nil {
			return nil, storageErr("create repository", err)
		}
		reg.CreatedRepo = true
		slog.Info("repository registered", "repo", repo.Name, "remote_url", repo.RemoteURL)
	}
	reg.Repo = *repo

	if err := s.ensurePath(ctx, repo, info.Toplevel); err != nil {
		return nil, err
	}

	branch := info.Branch
	if branch == "" {
		branch = detachedBranch
	}

	session, err := s.sessionStore.GetActive(ctx, repo.ID)
	if err != nil {
		return nil, storageErr("find active session", err)
	}
	if session == nil || session.Branch != branch {
		session, err = s.sessionStore.Create(ctx, repo.ID, branch)
		if err != nil {
			return nil, storageErr("create session", err)
		}
		reg.CreatedSession = true
		slog.Info("review session started", "repo", repo.Name, "branch", branch, "session_id", session.ID)
	}
	reg.Session = *session

	// A new session or a new path changes what each path's signal file shows.
	if err := s.signals.RecomputeForRepo(ctx, repo.ID); err != nil {
		slog.Warn("signal recompute failed", "repo", repo.Name, "error", err)
	}

	return reg, nil
}

func (s *RegistrationService) findRepo(ctx context.Context, info *driven.CheckoutInfo) (*model.Repository, error) {
	if info.RemoteURL != "" {
		repo, err := s.repoStore.GetByRemoteURL(ctx, info.RemoteURL)
		if err != nil {
			return nil, storageErr("find repository by remote", err)
		}
		if repo != nil {
			return repo, nil
		}
	}

	repo, err := s.repoStore.GetByPath(ctx, info.Toplevel)
	if err != nil {
		return nil, storageErr("find repository by path", err)
	}
	return repo, nil
}

func (s *RegistrationService) ensurePath(ctx context.Context, repo *model.Repository, path string) error {
	_, err := s.repoStore.AddPath(ctx, repo.ID, path)
	if err == nil {
		slog.Info("repository path registered", "repo", repo.Name, "path", path)
		return nil
	}
	if !errors.Is(err, driven.ErrRepoPathExists) {
		return storageErr("add repository path", err)
	}

	owner, err := s.repoStore.GetByPath(ctx, path)
	if err != nil {
		return storageErr("find repository by path", err)
	}
	if owner != nil && owner.ID != repo.ID {
		return fmt.Errorf("%w: %s belongs to repository %s", driven.ErrRepoPathExists, path, owner.Name)
	}
	return nil
}

func (s *RegistrationService) baseBranch(ctx context.Context, remoteURL string) string {
	if s.metadata == nil || remoteURL == "" {
		return DefaultBaseBranch
	}

	branch, err := s.metadata.DefaultBranch(ctx, remoteURL)
	if err != nil {
		slog.Warn("default branch lookup failed", "remote_url", remoteURL, "error", err)
		return DefaultBaseBranch
	}
	if branch == "" {
		return DefaultBaseBranch
	}
	return branch
}

// RepoDisplayName derives "owner/repo" from a remote URL, or the directory
// name when there is no usable remote.
func RepoDisplayName(remoteURL, toplevel string) string {
	if m := remoteNamePattern.FindStringSubmatch(strings.TrimSpace(remoteURL)); m != nil {
		return m[1]
	}
	return filepath.Base(filepath.Clean(toplevel))
}
