package agent

import (
	"context"

	"codescout/internal/domain/models/chat"
)

// ResultLimit is the maximum length of tool result content forwarded on the
// stream. Truncation happens here, at the source, never in the reducer.
const ResultLimit = 500

// Message is one prior turn reduced to its narrative text. Tool calls and tool
// results are never replayed into history.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Request describes one agent run: the new prompt plus the reconstructed
// conversation history, oldest first.
type Request struct {
	RepoID  string    `json:"repo_id,omitempty"`
	Prompt  string    `json:"prompt"`
	History []Message `json:"history,omitempty"`
}

// Source is the agent execution engine seen as an opaque asynchronous event
// source. Stream starts one run and yields its events in order on the
// returned channel; the channel is closed after the done event or when ctx is
// cancelled. The engine itself (tool invocation, model calls, permissions)
// lives behind this interface.
type Source interface {
	Stream(ctx context.Context, req *Request) (<-chan chat.AgentEvent, error)
}

// TruncateResult clips tool result content to ResultLimit characters,
// appending an ellipsis marker when clipped.
func TruncateResult(content string) string {
	runes := []rune(content)
	if len(runes) <= ResultLimit {
		return content
	}
	return string(runes[:ResultLimit]) + "..."
}
