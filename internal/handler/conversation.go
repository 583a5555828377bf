package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"codescout/internal/domain/models/chat"
	"codescout/internal/domain/repositories"
	"codescout/internal/domain/services"
	"codescout/internal/httputil"
)

// ConversationHandler handles conversation and turn HTTP requests
type ConversationHandler struct {
	convService services.ConversationService
	logger      *slog.Logger
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(convService services.ConversationService, logger *slog.Logger) *ConversationHandler {
	return &ConversationHandler{
		convService: convService,
		logger:      logger,
	}
}

// CreateConversation creates a conversation under a client-allocated id
// POST /api/conversations
func (h *ConversationHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	var req services.CreateConversationRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserID = userID

	conv, err := h.convService.CreateConversation(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, conv)
}

// ListConversations retrieves one page of the user's conversations
// GET /api/conversations?limit=&offset=
func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	p := repositories.Pagination{
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}

	page, err := h.convService.ListConversations(r.Context(), userID, p)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// GetConversation retrieves a conversation with its turns
// GET /api/conversations/{id}
func (h *ConversationHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	conv, err := h.convService.GetConversation(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, conv)
}

// UpdateConversation renames a conversation
// PATCH /api/conversations/{id}
func (h *ConversationHandler) UpdateConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	var req services.UpdateConversationRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	conv, err := h.convService.UpdateConversation(r.Context(), r.PathValue("id"), userID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, conv)
}

// DeleteConversation soft-deletes a conversation
// DELETE /api/conversations/{id}
func (h *ConversationHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	if err := h.convService.DeleteConversation(r.Context(), r.PathValue("id"), userID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTurns retrieves a conversation's transcript ordered by creation time
// GET /api/conversations/{id}/turns
func (h *ConversationHandler) ListTurns(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	turns, err := h.convService.ListTurns(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, turns)
}

// AppendTurn appends a turn to a conversation
// POST /api/conversations/{id}/turns
func (h *ConversationHandler) AppendTurn(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	var turn chat.Turn
	if err := httputil.ParseJSON(w, r, &turn); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.convService.AppendTurn(r.Context(), r.PathValue("id"), userID, &turn)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, created)
}

// PatchTurn merges partial fields into a turn
// PATCH /api/turns/{id}
func (h *ConversationHandler) PatchTurn(w http.ResponseWriter, r *http.Request) {
	if _, ok := httputil.RequireUserID(w, r); !ok {
		return
	}

	var patch chat.TurnPatch
	if err := httputil.ParseJSON(w, r, &patch); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.convService.PatchTurn(r.Context(), r.PathValue("id"), patch); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}
