package client

import (
	"unicode/utf8"

	"codescout/internal/domain/models/chat"
)

// Phase is the explicit progress state of an assistant draft. It replaces
// optional-field probing: stats exist only once Completed, the tools start
// index only from Exploring onward.
type Phase int

const (
	// PhaseDrafting: narration only, no tool has run yet.
	PhaseDrafting Phase = iota
	// PhaseExploring: at least one tool invocation has been made.
	PhaseExploring
	// PhaseCompleted: a result event arrived; the run finished successfully.
	PhaseCompleted
	// PhaseCancelled: the run was stopped or the transport failed.
	PhaseCancelled
)

// Draft is the in-progress assistant entry being assembled from the event
// stream. Reduce folds events onto it one at a time, in strict arrival
// order; the draft holds no event queue of its own and must never be driven
// concurrently for the same turn.
type Draft struct {
	phase           Phase
	text            string
	toolCalls       []chat.ToolCall
	toolsStartIndex *int
	stats           *chat.RunStats
}

// NewDraft returns an empty draft in the drafting phase.
func NewDraft() *Draft {
	return &Draft{phase: PhaseDrafting}
}

// Phase returns the draft's current progress state.
func (d *Draft) Phase() Phase { return d.phase }

// Text returns the accumulated narrative.
func (d *Draft) Text() string { return d.text }

// Reduce applies one event and returns the partial update the conversation
// store must persist. A zero patch means the event changed nothing
// externally visible.
//
// Text handling is strictly append-only; events are never reordered or
// deduplicated here.
func (d *Draft) Reduce(ev chat.AgentEvent) chat.TurnPatch {
	switch ev.Type {
	case chat.EventNewTurn:
		// Paragraph break between the agent's internal turns keeps the
		// narration readable instead of one run-on paragraph.
		return d.appendText("\n\n")

	case chat.EventText:
		return d.appendText(ev.Content)

	case chat.EventToolUse:
		patch := chat.TurnPatch{}
		if d.toolsStartIndex == nil {
			// One-time capture of the split point between pre-tool narration
			// and the post-tool answer. Never moves afterward.
			offset := utf8.RuneCountInString(d.text)
			d.toolsStartIndex = &offset
			d.phase = PhaseExploring
			patch.ToolsStartIndex = d.toolsStartIndex
		}
		d.toolCalls = append(d.toolCalls, chat.ToolCall{Tool: ev.Tool, Input: ev.Input})
		patch.ToolCalls = snapshotCalls(d.toolCalls)
		return patch

	case chat.EventToolResult:
		if len(d.toolCalls) == 0 {
			// Stray result before any tool_use: drop it rather than fail.
			return chat.TurnPatch{}
		}
		content := ev.Content
		d.toolCalls[len(d.toolCalls)-1].Result = &content
		return chat.TurnPatch{ToolCalls: snapshotCalls(d.toolCalls)}

	case chat.EventResult:
		stats := chat.RunStats{}
		if ev.Stats != nil {
			stats = *ev.Stats
		}
		d.stats = &stats
		d.phase = PhaseCompleted
		status := chat.StatusCompleted
		return chat.TurnPatch{Stats: d.stats, Status: &status}

	case chat.EventError:
		// Recoverable narration, not a fatal abort: the agent may keep
		// producing output afterward, so status is untouched.
		return d.appendText("\n\nError: " + ev.Content)

	case chat.EventDone:
		// Stream terminal marker; finalizing status is the run controller's
		// job, based on whether a result event was seen.
		return chat.TurnPatch{}
	}

	return chat.TurnPatch{}
}

// Cancel ends the draft outside the event protocol: user stop or transport
// failure. Transport failures (not user-initiated) additionally get the
// connection-error suffix appended to whatever partial text exists.
// Partial text and tool calls are preserved, never discarded.
func (d *Draft) Cancel(transportFailure bool) chat.TurnPatch {
	patch := chat.TurnPatch{}
	if transportFailure {
		patch = d.appendText("\n\nConnection error.")
	}
	d.phase = PhaseCancelled
	status := chat.StatusCancelled
	patch.Status = &status
	return patch
}

func (d *Draft) appendText(fragment string) chat.TurnPatch {
	d.text += fragment
	text := d.text
	return chat.TurnPatch{Text: &text}
}

// snapshotCalls copies the live tool-call slice for a patch. Patches escape
// to persistence goroutines, so they must stay stable while the reducer keeps
// mutating the backing array in place.
func snapshotCalls(calls []chat.ToolCall) []chat.ToolCall {
	return append([]chat.ToolCall(nil), calls...)
}
