package chat

import (
	"time"
)

// Turn roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn status values. A turn starts in_progress and reaches exactly one
// terminal status; it is immutable from then on.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// ToolCall records one tool invocation made by the agent during a run.
// Result is set at most once, when the matching tool_result event arrives,
// and only ever on the most recently appended call.
type ToolCall struct {
	Tool   string      `json:"tool"`
	Input  interface{} `json:"input"`
	Result *string     `json:"result,omitempty"`
}

// RunStats holds the final statistics of a successfully completed run.
// Field names match the streaming wire contract.
type RunStats struct {
	ToolUses   int   `json:"toolUses"`
	Tokens     int   `json:"tokens"`
	DurationMs int64 `json:"durationMs"`
}

// Turn is one entry in a conversation.
//
// User turns are immutable once created and carry only Text. Assistant turns
// are mutated incrementally by the transcript reducer while Status is
// in_progress: Text is append-only, ToolCalls grows in invocation order, and
// ToolsStartIndex is captured once at the first tool invocation to split
// pre-tool narration from the post-tool answer within the single text buffer.
type Turn struct {
	ID              string     `json:"id" db:"id"`
	ConversationID  string     `json:"conversation_id" db:"conversation_id"`
	Role            string     `json:"role" db:"role"`
	Text            string     `json:"text" db:"text"`
	ToolCalls       []ToolCall `json:"tool_calls,omitempty" db:"tool_calls"`
	ToolsStartIndex *int       `json:"tools_start_index,omitempty" db:"tools_start_index"`
	Stats           *RunStats  `json:"stats,omitempty" db:"stats"`
	Status          string     `json:"status" db:"status"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// TurnPatch is a partial update to a turn. Nil fields are absent and leave the
// target field untouched; a non-nil ToolCalls slice replaces the whole list.
// All patches emitted by the reducer are either pure appends or last-element
// overwrites, so applying the same patch twice yields the same final state.
type TurnPatch struct {
	Text            *string    `json:"text,omitempty"`
	ToolCalls       []ToolCall `json:"tool_calls,omitempty"`
	ToolsStartIndex *int       `json:"tools_start_index,omitempty"`
	Stats           *RunStats  `json:"stats,omitempty"`
	Status          *string    `json:"status,omitempty"`
}

// IsZero reports whether the patch carries no fields.
func (p TurnPatch) IsZero() bool {
	return p.Text == nil && p.ToolCalls == nil && p.ToolsStartIndex == nil &&
		p.Stats == nil && p.Status == nil
}

// Apply merges the patch into the turn (shallow merge on top-level fields).
func (t *Turn) Apply(p TurnPatch) {
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.ToolCalls != nil {
		t.ToolCalls = p.ToolCalls
	}
	if p.ToolsStartIndex != nil {
		t.ToolsStartIndex = p.ToolsStartIndex
	}
	if p.Stats != nil {
		t.Stats = p.Stats
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
}
