package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"codescout/internal/agent"
	"codescout/internal/domain"
	"codescout/internal/domain/models/chat"
	"codescout/internal/domain/services"
	"codescout/internal/httputil"
	"codescout/internal/sse"
)

// keepAliveInterval paces comment frames that defeat idle proxy timeouts
// while the agent is thinking between events.
const keepAliveInterval = 15 * time.Second

// StreamHandler relays one agent run to the client as server-sent events on
// the POST response body. Persistence never happens in this path; the client
// folds the events into its own transcript and syncs separately.
type StreamHandler struct {
	source      agent.Source
	convService services.ConversationService
	logger      *slog.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(source agent.Source, convService services.ConversationService, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		source:      source,
		convService: convService,
		logger:      logger,
	}
}

// StreamRun starts one agent run and streams its events
// POST /api/conversations/{id}/stream
func (h *StreamHandler) StreamRun(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}
	conversationID := r.PathValue("id")

	var req agent.Request
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.ValidateStruct(&req,
		validation.Field(&req.Prompt, validation.Required, validation.Length(1, 100000)),
	); err != nil {
		handleError(w, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	// Ownership check before any byte of the stream is committed; after the
	// 200 goes out, errors can only travel as error events.
	conv, err := h.convService.GetConversation(r.Context(), conversationID, userID)
	if err != nil {
		handleError(w, err)
		return
	}
	if req.RepoID == "" {
		req.RepoID = conv.RepoID
	}

	events, err := h.source.Stream(r.Context(), &req)
	if err != nil {
		h.logger.Error("agent run failed to start",
			"conversation_id", conversationID,
			"error", err,
		)
		handleError(w, err)
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	h.logger.Info("stream opened",
		"conversation_id", conversationID,
		"user_id", userID,
	)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	doneSent := false
	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("client disconnected",
				"conversation_id", conversationID,
			)
			return

		case <-keepAlive.C:
			if err := writer.WriteKeepAlive(); err != nil {
				h.logger.Warn("keepalive write failed",
					"conversation_id", conversationID,
					"error", err,
				)
				return
			}

		case ev, open := <-events:
			if !open {
				// The source hung up without its terminal frame; close the
				// protocol properly so the client can finalize.
				if !doneSent {
					if err := writer.WriteEvent(chat.DoneEvent()); err != nil {
						h.logger.Warn("done write failed",
							"conversation_id", conversationID,
							"error", err,
						)
					}
				}
				h.logger.Info("stream closed",
					"conversation_id", conversationID,
				)
				return
			}
			if err := writer.WriteEvent(ev); err != nil {
				h.logger.Warn("event write failed",
					"conversation_id", conversationID,
					"event_type", ev.Type,
					"error", err,
				)
				return
			}
			if ev.Type == chat.EventDone {
				doneSent = true
			}
		}
	}
}
