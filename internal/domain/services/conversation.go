package services

import (
	"context"

	"codescout/internal/domain/models/chat"
	"codescout/internal/domain/repositories"
)

// CreateConversationRequest represents a request to create a conversation.
// The id is allocated by the client so it can proceed optimistically before
// the insert lands.
type CreateConversationRequest struct {
	ID     string `json:"id"`
	RepoID string `json:"repo_id"`
	UserID string `json:"-"`
	Title  string `json:"title"`
}

// UpdateConversationRequest represents a request to rename a conversation.
type UpdateConversationRequest struct {
	Title string `json:"title"`
}

// ConversationService defines business logic operations for conversations
// and their turns.
type ConversationService interface {
	// CreateConversation creates a conversation under the client-supplied id.
	CreateConversation(ctx context.Context, req *CreateConversationRequest) (*chat.Conversation, error)

	// GetConversation retrieves a conversation by ID
	GetConversation(ctx context.Context, id, userID string) (*chat.Conversation, error)

	// ListConversations retrieves one page of a user's conversations,
	// most recently updated first
	ListConversations(ctx context.Context, userID string, p repositories.Pagination) (*repositories.ConversationPage, error)

	// UpdateConversation renames a conversation
	UpdateConversation(ctx context.Context, id, userID string, req *UpdateConversationRequest) (*chat.Conversation, error)

	// DeleteConversation soft-deletes a conversation
	DeleteConversation(ctx context.Context, id, userID string) error

	// AppendTurn appends a turn, deriving the conversation title from the
	// first user turn and bumping the conversation's updated-at timestamp
	AppendTurn(ctx context.Context, conversationID, userID string, turn *chat.Turn) (*chat.Turn, error)

	// PatchTurn merges partial fields into a turn
	PatchTurn(ctx context.Context, turnID string, patch chat.TurnPatch) error

	// ListTurns retrieves a conversation's turns ordered by creation time
	ListTurns(ctx context.Context, conversationID, userID string) ([]chat.Turn, error)
}
