package repositories

import (
	"context"

	"codescout/internal/domain/models"
)

// RepoRepository is the durable-storage contract for registered repositories.
type RepoRepository interface {
	CreateRepo(ctx context.Context, repo *models.Repo) error
	GetRepo(ctx context.Context, repoID, userID string) (*models.Repo, error)
	ListRepos(ctx context.Context, userID string) ([]models.Repo, error)
	UpdateRepo(ctx context.Context, repo *models.Repo) error
	DeleteRepo(ctx context.Context, repoID, userID string) (*models.Repo, error)
}
