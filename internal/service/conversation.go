package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"codescout/internal/domain"
	"codescout/internal/domain/models/chat"
	"codescout/internal/domain/repositories"
	"codescout/internal/domain/services"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// conversationService implements the ConversationService interface
type conversationService struct {
	convRepo repositories.ConversationRepository
	repoRepo repositories.RepoRepository
	logger   *slog.Logger
}

// NewConversationService creates a new conversation service
func NewConversationService(
	convRepo repositories.ConversationRepository,
	repoRepo repositories.RepoRepository,
	logger *slog.Logger,
) services.ConversationService {
	return &conversationService{
		convRepo: convRepo,
		repoRepo: repoRepo,
		logger:   logger,
	}
}

// CreateConversation inserts a conversation under the client-supplied id.
func (s *conversationService) CreateConversation(ctx context.Context, req *services.CreateConversationRequest) (*chat.Conversation, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.ID, validation.Required, validation.By(validUUID)),
		validation.Field(&req.RepoID, validation.Required, validation.By(validUUID)),
		validation.Field(&req.Title, validation.Length(0, 200)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	// The repo must belong to the caller before a conversation can hang off it.
	if _, err := s.repoRepo.GetRepo(ctx, req.RepoID, req.UserID); err != nil {
		return nil, err
	}

	title := req.Title
	if title == "" {
		title = chat.DefaultTitle
	}

	now := time.Now()
	conv := &chat.Conversation{
		ID:        req.ID,
		RepoID:    req.RepoID,
		UserID:    req.UserID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.convRepo.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}

	s.logger.Info("conversation created",
		"id", conv.ID,
		"repo_id", conv.RepoID,
		"user_id", conv.UserID,
	)

	return conv, nil
}

// GetConversation retrieves a conversation with its turns loaded.
func (s *conversationService) GetConversation(ctx context.Context, id, userID string) (*chat.Conversation, error) {
	conv, err := s.convRepo.GetConversation(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	turns, err := s.convRepo.ListTurns(ctx, id)
	if err != nil {
		return nil, err
	}
	conv.Turns = turns

	return conv, nil
}

// ListConversations retrieves one page of the user's conversations.
func (s *conversationService) ListConversations(ctx context.Context, userID string, p repositories.Pagination) (*repositories.ConversationPage, error) {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return s.convRepo.ListConversations(ctx, userID, p)
}

// UpdateConversation renames a conversation.
func (s *conversationService) UpdateConversation(ctx context.Context, id, userID string, req *services.UpdateConversationRequest) (*chat.Conversation, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, 200)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	conv, err := s.convRepo.GetConversation(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	conv.Title = req.Title
	conv.UpdatedAt = time.Now()
	if err := s.convRepo.UpdateConversation(ctx, conv); err != nil {
		return nil, err
	}

	return conv, nil
}

// DeleteConversation soft-deletes a conversation.
func (s *conversationService) DeleteConversation(ctx context.Context, id, userID string) error {
	conv, err := s.convRepo.DeleteConversation(ctx, id, userID)
	if err != nil {
		return err
	}

	s.logger.Info("conversation deleted",
		"id", conv.ID,
		"user_id", userID,
	)

	return nil
}

// AppendTurn appends a turn to a conversation the caller owns. The first
// user turn of a conversation still carrying the placeholder title also
// renames the conversation; every append bumps its updated-at timestamp.
func (s *conversationService) AppendTurn(ctx context.Context, conversationID, userID string, turn *chat.Turn) (*chat.Turn, error) {
	if err := validation.ValidateStruct(turn,
		validation.Field(&turn.ID, validation.Required, validation.By(validUUID)),
		validation.Field(&turn.Role, validation.Required, validation.In(chat.RoleUser, chat.RoleAssistant)),
		validation.Field(&turn.Status, validation.In(chat.StatusInProgress, chat.StatusCompleted, chat.StatusCancelled)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	conv, err := s.convRepo.GetConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	turn.ConversationID = conversationID
	if turn.Status == "" {
		turn.Status = chat.StatusCompleted
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	if err := s.convRepo.AppendTurn(ctx, turn); err != nil {
		return nil, err
	}

	if turn.Role == chat.RoleUser && conv.Title == chat.DefaultTitle {
		conv.Title = chat.DeriveTitle(turn.Text)
	}
	conv.UpdatedAt = time.Now()
	if err := s.convRepo.UpdateConversation(ctx, conv); err != nil {
		// The turn itself landed; a lost title/timestamp bump is recoverable.
		s.logger.Warn("conversation bump failed",
			"conversation_id", conversationID,
			"error", err,
		)
	}

	return turn, nil
}

// PatchTurn merges partial fields into a turn.
func (s *conversationService) PatchTurn(ctx context.Context, turnID string, patch chat.TurnPatch) error {
	if patch.IsZero() {
		return nil
	}
	if patch.Status != nil {
		switch *patch.Status {
		case chat.StatusInProgress, chat.StatusCompleted, chat.StatusCancelled:
		default:
			return fmt.Errorf("%w: invalid status %q", domain.ErrValidation, *patch.Status)
		}
	}
	return s.convRepo.PatchTurn(ctx, turnID, patch)
}

// ListTurns retrieves a conversation's turns ordered by creation time.
func (s *conversationService) ListTurns(ctx context.Context, conversationID, userID string) ([]chat.Turn, error) {
	if _, err := s.convRepo.GetConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return s.convRepo.ListTurns(ctx, conversationID)
}

// validUUID is an ozzo rule for client-allocated ids.
func validUUID(value interface{}) error {
	str, _ := value.(string)
	if str == "" {
		return nil
	}
	return uuid.Validate(str)
}
