package handler

import (
	"log/slog"
	"net/http"

	"codescout/internal/domain/services"
	"codescout/internal/httputil"
)

// RepoHandler handles repository registration HTTP requests
type RepoHandler struct {
	repoService services.RepoService
	logger      *slog.Logger
}

// NewRepoHandler creates a new repo handler
func NewRepoHandler(repoService services.RepoService, logger *slog.Logger) *RepoHandler {
	return &RepoHandler{
		repoService: repoService,
		logger:      logger,
	}
}

// RegisterRepo records a repository for the caller
// POST /api/repos
func (h *RepoHandler) RegisterRepo(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	var req services.RegisterRepoRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserID = userID

	repo, err := h.repoService.RegisterRepo(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, repo)
}

// ListRepos retrieves the caller's repositories
// GET /api/repos
func (h *RepoHandler) ListRepos(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	repos, err := h.repoService.ListRepos(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, repos)
}

// GetRepo retrieves a repository by ID
// GET /api/repos/{id}
func (h *RepoHandler) GetRepo(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	repo, err := h.repoService.GetRepo(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, repo)
}

// UpdateRepo applies a partial metadata/status update
// PATCH /api/repos/{id}
func (h *RepoHandler) UpdateRepo(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	var req services.UpdateRepoRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	repo, err := h.repoService.UpdateRepo(r.Context(), r.PathValue("id"), userID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, repo)
}

// DeleteRepo soft-deletes a repository
// DELETE /api/repos/{id}
func (h *RepoHandler) DeleteRepo(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	if err := h.repoService.DeleteRepo(r.Context(), r.PathValue("id"), userID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
