package repositories

import (
	"context"

	"codescout/internal/domain/models/chat"
)

// Pagination bounds a list query.
type Pagination struct {
	Limit  int
	Offset int
}

// ConversationPage is one page of a conversation listing.
type ConversationPage struct {
	Items   []chat.Conversation `json:"items"`
	HasMore bool                `json:"has_more"`
}

// ConversationRepository is the durable-storage contract for conversations and
// their turns. IDs are allocated by the caller (uuid) so that clients can
// proceed optimistically without waiting on the insert.
type ConversationRepository interface {
	CreateConversation(ctx context.Context, conv *chat.Conversation) error
	GetConversation(ctx context.Context, conversationID, userID string) (*chat.Conversation, error)
	ListConversations(ctx context.Context, userID string, p Pagination) (*ConversationPage, error)
	UpdateConversation(ctx context.Context, conv *chat.Conversation) error
	DeleteConversation(ctx context.Context, conversationID, userID string) (*chat.Conversation, error)

	AppendTurn(ctx context.Context, turn *chat.Turn) error
	PatchTurn(ctx context.Context, turnID string, patch chat.TurnPatch) error
	// ListTurns returns all turns of a conversation ordered by created_at.
	// Creation-timestamp ordering is the sole ordering key for turns; callers
	// must not rely on insertion order.
	ListTurns(ctx context.Context, conversationID string) ([]chat.Turn, error)
}
