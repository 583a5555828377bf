package chat

import (
	"time"
)

// DefaultTitle is the placeholder title assigned when a conversation is created
// before any user turn exists. The first user turn replaces it (see DeriveTitle).
const DefaultTitle = "New conversation"

// titleMaxRunes is the truncation point for auto-derived conversation titles.
const titleMaxRunes = 50

// Conversation is an ordered collection of turns about one registered repository.
type Conversation struct {
	ID        string     `json:"id" db:"id"`
	RepoID    string     `json:"repo_id" db:"repo_id"`
	UserID    string     `json:"user_id" db:"user_id"`
	Title     string     `json:"title" db:"title"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`

	// Computed field (not stored on the conversations table)
	Turns []Turn `json:"turns,omitempty"`
}

// DeriveTitle builds a conversation title from the text of its first user turn.
// Content longer than 50 characters is truncated and suffixed with an ellipsis
// marker; shorter content is used verbatim.
func DeriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= titleMaxRunes {
		return content
	}
	return string(runes[:titleMaxRunes]) + "..."
}
