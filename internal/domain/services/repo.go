package services

import (
	"context"

	"codescout/internal/domain/models"
)

// RegisterRepoRequest represents a request to register a repository.
type RegisterRepoRequest struct {
	UserID        string `json:"-"`
	Name          string `json:"name"`
	CloneURL      string `json:"clone_url"`
	DefaultBranch string `json:"default_branch"`
}

// UpdateRepoRequest represents a status report from the clone worker or a
// rename. Nil fields are left unchanged.
type UpdateRepoRequest struct {
	Name          *string `json:"name"`
	DefaultBranch *string `json:"default_branch"`
	Status        *string `json:"status"`
}

// RepoService defines business logic operations for registered repositories.
type RepoService interface {
	// RegisterRepo records a repository; cloning is an external worker's job
	RegisterRepo(ctx context.Context, req *RegisterRepoRequest) (*models.Repo, error)

	// GetRepo retrieves a repository by ID
	GetRepo(ctx context.Context, id, userID string) (*models.Repo, error)

	// ListRepos retrieves all of a user's repositories
	ListRepos(ctx context.Context, userID string) ([]models.Repo, error)

	// UpdateRepo applies a partial metadata/status update
	UpdateRepo(ctx context.Context, id, userID string, req *UpdateRepoRequest) (*models.Repo, error)

	// DeleteRepo soft-deletes a repository
	DeleteRepo(ctx context.Context, id, userID string) error
}
