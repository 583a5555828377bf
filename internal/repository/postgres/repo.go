package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"codescout/internal/domain"
	"codescout/internal/domain/models"
	"codescout/internal/domain/repositories"
)

// PostgresRepoRepository implements RepoRepository using PostgreSQL
type PostgresRepoRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewRepoRepository creates a new PostgresRepoRepository
func NewRepoRepository(config *RepositoryConfig) repositories.RepoRepository {
	return &PostgresRepoRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// CreateRepo registers a repository record.
func (r *PostgresRepoRepository) CreateRepo(ctx context.Context, repo *models.Repo) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, name, clone_url, default_branch, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.tables.Repos)

	_, err := r.pool.Exec(ctx, query,
		repo.ID,
		repo.UserID,
		repo.Name,
		repo.CloneURL,
		repo.DefaultBranch,
		repo.Status,
		repo.CreatedAt,
		repo.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			existingID, queryErr := r.getExistingRepoID(ctx, repo.UserID, repo.Name)
			if queryErr != nil {
				return fmt.Errorf("repo '%s' already exists: %w", repo.Name, domain.ErrConflict)
			}
			return &domain.ConflictError{
				Message:      fmt.Sprintf("repo '%s' already exists", repo.Name),
				ResourceType: "repo",
				ResourceID:   existingID,
			}
		}
		return fmt.Errorf("create repo: %w", err)
	}

	return nil
}

// getExistingRepoID retrieves the ID of an existing repo by name
func (r *PostgresRepoRepository) getExistingRepoID(ctx context.Context, userID, name string) (string, error) {
	query := fmt.Sprintf(`
		SELECT id FROM %s
		WHERE user_id = $1 AND name = $2 AND deleted_at IS NULL
	`, r.tables.Repos)

	var id string
	if err := r.pool.QueryRow(ctx, query, userID, name).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// GetRepo retrieves a repo by ID
func (r *PostgresRepoRepository) GetRepo(ctx context.Context, repoID, userID string) (*models.Repo, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, name, clone_url, default_branch, status, created_at, updated_at, deleted_at
		FROM %s
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, r.tables.Repos)

	var repo models.Repo
	err := r.pool.QueryRow(ctx, query, repoID, userID).Scan(
		&repo.ID,
		&repo.UserID,
		&repo.Name,
		&repo.CloneURL,
		&repo.DefaultBranch,
		&repo.Status,
		&repo.CreatedAt,
		&repo.UpdatedAt,
		&repo.DeletedAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("repo %s: %w", repoID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get repo: %w", err)
	}

	return &repo, nil
}

// ListRepos retrieves all repos registered by a user
func (r *PostgresRepoRepository) ListRepos(ctx context.Context, userID string) ([]models.Repo, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, name, clone_url, default_branch, status, created_at, updated_at, deleted_at
		FROM %s
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY updated_at DESC
	`, r.tables.Repos)

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}
	defer rows.Close()

	var repos []models.Repo
	for rows.Next() {
		var repo models.Repo
		err := rows.Scan(
			&repo.ID,
			&repo.UserID,
			&repo.Name,
			&repo.CloneURL,
			&repo.DefaultBranch,
			&repo.Status,
			&repo.CreatedAt,
			&repo.UpdatedAt,
			&repo.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan repo: %w", err)
		}
		repos = append(repos, repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate repos: %w", err)
	}

	if repos == nil {
		repos = []models.Repo{}
	}

	return repos, nil
}

// UpdateRepo updates a repo's mutable fields
func (r *PostgresRepoRepository) UpdateRepo(ctx context.Context, repo *models.Repo) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, clone_url = $2, default_branch = $3, status = $4, updated_at = $5
		WHERE id = $6 AND user_id = $7 AND deleted_at IS NULL
	`, r.tables.Repos)

	result, err := r.pool.Exec(ctx, query,
		repo.Name,
		repo.CloneURL,
		repo.DefaultBranch,
		repo.Status,
		repo.UpdatedAt,
		repo.ID,
		repo.UserID,
	)

	if err != nil {
		return fmt.Errorf("update repo: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("repo %s: %w", repo.ID, domain.ErrNotFound)
	}

	return nil
}

// DeleteRepo soft-deletes a repo
func (r *PostgresRepoRepository) DeleteRepo(ctx context.Context, repoID, userID string) (*models.Repo, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
		RETURNING id, user_id, name, clone_url, default_branch, status, created_at, updated_at, deleted_at
	`, r.tables.Repos)

	var repo models.Repo
	err := r.pool.QueryRow(ctx, query, repoID, userID).Scan(
		&repo.ID,
		&repo.UserID,
		&repo.Name,
		&repo.CloneURL,
		&repo.DefaultBranch,
		&repo.Status,
		&repo.CreatedAt,
		&repo.UpdatedAt,
		&repo.DeletedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("repo %s: %w", repoID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("delete repo: %w", err)
	}

	return &repo, nil
}
