package chat

// Agent event type constants. Every frame on the stream decodes to exactly one
// of these; the set is closed.
const (
	EventText       = "text"        // append content to the narrative
	EventToolUse    = "tool_use"    // a new tool invocation begins
	EventToolResult = "tool_result" // result for the most recent tool invocation
	EventNewTurn    = "new_turn"    // internal turn boundary; paragraph break
	EventResult     = "result"      // run finished successfully, stats attached
	EventError      = "error"       // recoverable error narration
	EventDone       = "done"        // stream terminal marker
)

// AgentEvent is one event produced by the agent event source during a run.
// Type discriminates which payload fields are meaningful:
//
//	text:        Content
//	tool_use:    Tool, Input
//	tool_result: Content (truncated to 500 chars by the source)
//	new_turn:    no payload
//	result:      Stats
//	error:       Content
//	done:        no payload
type AgentEvent struct {
	Type    string      `json:"type"`
	Content string      `json:"content,omitempty"`
	Tool    string      `json:"tool,omitempty"`
	Input   interface{} `json:"input,omitempty"`
	Stats   *RunStats   `json:"stats,omitempty"`
}

// KnownEventType reports whether t is part of the event vocabulary.
func KnownEventType(t string) bool {
	switch t {
	case EventText, EventToolUse, EventToolResult, EventNewTurn,
		EventResult, EventError, EventDone:
		return true
	}
	return false
}

// Helper constructors for common events

// TextEvent creates a text event carrying a narrative fragment.
func TextEvent(content string) AgentEvent {
	return AgentEvent{Type: EventText, Content: content}
}

// ToolUseEvent creates a tool_use event announcing a new invocation.
func ToolUseEvent(tool string, input interface{}) AgentEvent {
	return AgentEvent{Type: EventToolUse, Tool: tool, Input: input}
}

// ToolResultEvent creates a tool_result event for the most recent invocation.
func ToolResultEvent(content string) AgentEvent {
	return AgentEvent{Type: EventToolResult, Content: content}
}

// NewTurnEvent creates a new_turn boundary event.
func NewTurnEvent() AgentEvent {
	return AgentEvent{Type: EventNewTurn}
}

// ResultEvent creates a result event carrying final run statistics.
func ResultEvent(stats RunStats) AgentEvent {
	return AgentEvent{Type: EventResult, Stats: &stats}
}

// ErrorEvent creates an error event with recoverable error narration.
func ErrorEvent(message string) AgentEvent {
	return AgentEvent{Type: EventError, Content: message}
}

// DoneEvent creates the stream terminal marker.
func DoneEvent() AgentEvent {
	return AgentEvent{Type: EventDone}
}
