package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/reviewrelay/internal/domain/model"
	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RepoStore = (*RepoRepo)(nil)

const repoColumns = `r.id, r.name, r.remote_url, r.base_branch, r.created_at`

// RepoRepo is the SQLite implementation of the RepoStore port interface.
type RepoRepo struct {
	db *DB
}

// NewRepoRepo creates a new RepoRepo backed by the given DB.
func NewRepoRepo(db *DB) *RepoRepo {
	return &RepoRepo{db: db}
}

// Create inserts a new repository and returns it with its generated ID.
func (r *RepoRepo) Create(ctx context.Context, repo model.Repository) (*model.Repository, error) {
	const query = `INSERT INTO repositories (name, remote_url, base_branch, created_at) VALUES (?, ?, ?, ?)`

	createdAt := repo.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if repo.BaseBranch == "" {
		repo.BaseBranch = "main"
	}

	var remoteURL any
	if repo.RemoteURL != "" {
		remoteURL = repo.RemoteURL
	}

	result, err := r.db.Writer.ExecContext(ctx, query, repo.Name, remoteURL, repo.BaseBranch, formatTime(createdAt))
	if err != nil {
		return nil, fmt.Errorf("create repository %s: %w", repo.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read repository id: %w", err)
	}

	repo.ID = id
	repo.CreatedAt = createdAt.UTC()
	return &repo, nil
}

// Get retrieves a repository by ID. Returns nil, nil if it does not exist.
func (r *RepoRepo) Get(ctx context.Context, id int64) (*model.Repository, error) {
	query := `SELECT ` + repoColumns + ` FROM repositories r WHERE r.id = ?`
	return r.getOne(ctx, fmt.Sprintf("get repository %d", id), query, id)
}

// GetByRemoteURL retrieves the repository with the given origin URL.
func (r *RepoRepo) GetByRemoteURL(ctx context.Context, remoteURL string) (*model.Repository, error) {
	query := `SELECT ` + repoColumns + ` FROM repositories r WHERE r.remote_url = ?`
	return r.getOne(ctx, fmt.Sprintf("get repository by remote %s", remoteURL), query, remoteURL)
}

// GetByPath retrieves the repository registered for exactly this path. No
// prefix or fuzzy matching is performed.
func (r *RepoRepo) GetByPath(ctx context.Context, path string) (*model.Repository, error) {
	query := `SELECT ` + repoColumns + `
		FROM repositories r
		JOIN repo_paths p ON p.repo_id = r.id
		WHERE p.path = ?`
	return r.getOne(ctx, fmt.Sprintf("get repository by path %s", path), query, path)
}

func (r *RepoRepo) getOne(ctx context.Context, op, query string, arg any) (*model.Repository, error) {
	repo, err := scanRepository(r.db.Reader.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return repo, nil
}

// ListAll returns all repositories ordered by name.
func (r *RepoRepo) ListAll(ctx context.Context) ([]model.Repository, error) {
	query := `SELECT ` + repoColumns + ` FROM repositories r ORDER BY r.name, r.id`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close()

	var repos []model.Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, *repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate repositories: %w", err)
	}

	return repos, nil
}

// AddPath registers a working directory for a repository.
func (r *RepoRepo) AddPath(ctx context.Context, repoID int64, path string) (*model.RepoPath, error) {
	const query = `INSERT INTO repo_paths (repo_id, path, created_at) VALUES (?, ?, ?)`

	createdAt := time.Now().UTC()

	result, err := r.db.Writer.ExecContext(ctx, query, repoID, path, formatTime(createdAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, fmt.Errorf("add path %s: %w", path, driven.ErrRepoPathExists)
		}
		return nil, fmt.Errorf("add path %s: %w", path, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read repo path id: %w", err)
	}

	return &model.RepoPath{ID: id, RepoID: repoID, Path: path, CreatedAt: createdAt}, nil
}

// ListPaths returns the registered paths of a repository in registration order.
func (r *RepoRepo) ListPaths(ctx context.Context, repoID int64) ([]model.RepoPath, error) {
	const query = `SELECT id, repo_id, path, created_at FROM repo_paths WHERE repo_id = ? ORDER BY id`

	rows, err := r.db.Reader.QueryContext(ctx, query, repoID)
	if err != nil {
		return nil, fmt.Errorf("list paths for repository %d: %w", repoID, err)
	}
	defer rows.Close()

	var paths []model.RepoPath
	for rows.Next() {
		var p model.RepoPath
		var createdAt string
		if err := rows.Scan(&p.ID, &p.RepoID, &p.Path, &createdAt); err != nil {
			return nil, fmt.Errorf("scan repo path: %w", err)
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		paths = append(paths, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate repo paths: %w", err)
	}

	return paths, nil
}

func scanRepository(s scanner) (*model.Repository, error) {
	var repo model.Repository
	var remoteURL sql.NullString
	var createdAt string

	err := s.Scan(&repo.ID, &repo.Name, &remoteURL, &repo.BaseBranch, &createdAt)
	if err != nil {
		return nil, err
	}

	repo.RemoteURL = remoteURL.String

	repo.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &repo, nil
}
