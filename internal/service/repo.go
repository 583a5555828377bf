package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"codescout/internal/domain"
	"codescout/internal/domain/models"
	"codescout/internal/domain/repositories"
	"codescout/internal/domain/services"
)

// repoService implements the RepoService interface
type repoService struct {
	repoRepo repositories.RepoRepository
	logger   *slog.Logger
}

// NewRepoService creates a new repo service
func NewRepoService(repoRepo repositories.RepoRepository, logger *slog.Logger) services.RepoService {
	return &repoService{
		repoRepo: repoRepo,
		logger:   logger,
	}
}

// RegisterRepo records a repository in pending state. The clone worker
// reports the outcome later through UpdateRepo.
func (s *repoService) RegisterRepo(ctx context.Context, req *services.RegisterRepoRequest) (*models.Repo, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.CloneURL, validation.Required, validation.Length(1, 2048)),
		validation.Field(&req.DefaultBranch, validation.Length(0, 200)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	branch := req.DefaultBranch
	if branch == "" {
		branch = "main"
	}

	now := time.Now()
	repo := &models.Repo{
		ID:            uuid.New().String(),
		UserID:        req.UserID,
		Name:          req.Name,
		CloneURL:      req.CloneURL,
		DefaultBranch: branch,
		Status:        models.RepoStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repoRepo.CreateRepo(ctx, repo); err != nil {
		return nil, err
	}

	s.logger.Info("repo registered",
		"id", repo.ID,
		"name", repo.Name,
		"user_id", repo.UserID,
	)

	return repo, nil
}

// GetRepo retrieves a repository by ID.
func (s *repoService) GetRepo(ctx context.Context, id, userID string) (*models.Repo, error) {
	return s.repoRepo.GetRepo(ctx, id, userID)
}

// ListRepos retrieves all of a user's repositories.
func (s *repoService) ListRepos(ctx context.Context, userID string) ([]models.Repo, error) {
	return s.repoRepo.ListRepos(ctx, userID)
}

// UpdateRepo applies a partial metadata/status update.
func (s *repoService) UpdateRepo(ctx context.Context, id, userID string, req *services.UpdateRepoRequest) (*models.Repo, error) {
	if req.Status != nil {
		switch *req.Status {
		case models.RepoStatusPending, models.RepoStatusReady, models.RepoStatusFailed:
		default:
			return nil, fmt.Errorf("%w: invalid status %q", domain.ErrValidation, *req.Status)
		}
	}
	if req.Name != nil && *req.Name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", domain.ErrValidation)
	}

	repo, err := s.repoRepo.GetRepo(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		repo.Name = *req.Name
	}
	if req.DefaultBranch != nil {
		repo.DefaultBranch = *req.DefaultBranch
	}
	if req.Status != nil {
		repo.Status = *req.Status
	}
	repo.UpdatedAt = time.Now()

	if err := s.repoRepo.UpdateRepo(ctx, repo); err != nil {
		return nil, err
	}

	return repo, nil
}

// DeleteRepo soft-deletes a repository.
func (s *repoService) DeleteRepo(ctx context.Context, id, userID string) error {
	repo, err := s.repoRepo.DeleteRepo(ctx, id, userID)
	if err != nil {
		return err
	}

	s.logger.Info("repo deleted",
		"id", repo.ID,
		"user_id", userID,
	)

	return nil
}
