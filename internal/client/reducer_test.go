package client

import (
	"strings"
	"testing"

	"codescout/internal/domain/models/chat"
)

func TestReduceTextIsAppendOnly(t *testing.T) {
	d := NewDraft()

	events := []chat.AgentEvent{
		chat.TextEvent("Let me look"),
		chat.TextEvent(" at the code."),
		chat.NewTurnEvent(),
		chat.TextEvent("Found it."),
		chat.ErrorEvent("rate limited"),
		chat.TextEvent(" Retrying."),
	}

	prev := ""
	for i, ev := range events {
		d.Reduce(ev)
		if !strings.HasPrefix(d.Text(), prev) {
			t.Fatalf("event %d (%s): text %q no longer has prefix %q", i, ev.Type, d.Text(), prev)
		}
		prev = d.Text()
	}

	want := "Let me look at the code.\n\nFound it.\n\nError: rate limited Retrying."
	if d.Text() != want {
		t.Errorf("text = %q, want %q", d.Text(), want)
	}
}

func TestReduceToolsStartIndexCapturedOnce(t *testing.T) {
	d := NewDraft()

	// Multibyte narration: the split point counts runes, not bytes.
	d.Reduce(chat.TextEvent("Prüfe Código…"))

	patch := d.Reduce(chat.ToolUseEvent("Read", map[string]interface{}{"path": "main.go"}))
	if patch.ToolsStartIndex == nil {
		t.Fatal("first tool_use did not emit tools_start_index")
	}
	if got := *patch.ToolsStartIndex; got != 13 {
		t.Errorf("tools_start_index = %d, want 13 (rune count)", got)
	}
	if d.Phase() != PhaseExploring {
		t.Errorf("phase = %v, want PhaseExploring", d.Phase())
	}

	d.Reduce(chat.TextEvent(" more text"))
	patch = d.Reduce(chat.ToolUseEvent("Grep", nil))
	if patch.ToolsStartIndex != nil {
		t.Error("second tool_use re-emitted tools_start_index")
	}
	if len(patch.ToolCalls) != 2 {
		t.Errorf("tool calls = %d, want 2", len(patch.ToolCalls))
	}
}

func TestReduceToolResultPatchesLastCall(t *testing.T) {
	d := NewDraft()
	d.Reduce(chat.ToolUseEvent("Read", nil))
	d.Reduce(chat.ToolUseEvent("Grep", nil))

	patch := d.Reduce(chat.ToolResultEvent("3 matches"))
	calls := patch.ToolCalls
	if len(calls) != 2 {
		t.Fatalf("tool calls = %d, want 2", len(calls))
	}
	if calls[0].Result != nil {
		t.Error("result attached to first call instead of last")
	}
	if calls[1].Result == nil || *calls[1].Result != "3 matches" {
		t.Errorf("last call result = %v, want %q", calls[1].Result, "3 matches")
	}
}

func TestReduceToolResultWithoutCallsIsNoOp(t *testing.T) {
	d := NewDraft()
	patch := d.Reduce(chat.ToolResultEvent("orphaned"))
	if !patch.IsZero() {
		t.Errorf("stray tool_result emitted patch %+v, want zero", patch)
	}
}

func TestReduceResultCompletesRun(t *testing.T) {
	d := NewDraft()
	d.Reduce(chat.TextEvent("Done."))

	patch := d.Reduce(chat.ResultEvent(chat.RunStats{ToolUses: 1, Tokens: 120, DurationMs: 800}))
	if d.Phase() != PhaseCompleted {
		t.Errorf("phase = %v, want PhaseCompleted", d.Phase())
	}
	if patch.Stats == nil || patch.Stats.Tokens != 120 {
		t.Errorf("stats patch = %+v, want tokens 120", patch.Stats)
	}
	if patch.Status == nil || *patch.Status != chat.StatusCompleted {
		t.Errorf("status patch = %v, want %q", patch.Status, chat.StatusCompleted)
	}
}

func TestReduceErrorKeepsRunOpen(t *testing.T) {
	d := NewDraft()
	d.Reduce(chat.TextEvent("Working"))

	patch := d.Reduce(chat.ErrorEvent("tool crashed"))
	if patch.Status != nil {
		t.Error("error event changed status")
	}
	if d.Phase() != PhaseDrafting {
		t.Errorf("phase = %v, want PhaseDrafting", d.Phase())
	}

	// Repeated errors each append; nothing is deduplicated.
	d.Reduce(chat.ErrorEvent("tool crashed"))
	want := "Working\n\nError: tool crashed\n\nError: tool crashed"
	if d.Text() != want {
		t.Errorf("text = %q, want %q", d.Text(), want)
	}
}

func TestReduceDoneMutatesNothing(t *testing.T) {
	d := NewDraft()
	d.Reduce(chat.TextEvent("hello"))

	patch := d.Reduce(chat.DoneEvent())
	if !patch.IsZero() {
		t.Errorf("done emitted patch %+v, want zero", patch)
	}
	if d.Text() != "hello" || d.Phase() != PhaseDrafting {
		t.Error("done mutated draft state")
	}
}

func TestCancelDistinguishesUserStopFromFailure(t *testing.T) {
	t.Run("user stop keeps text unchanged", func(t *testing.T) {
		d := NewDraft()
		d.Reduce(chat.TextEvent("Partial answer"))

		patch := d.Cancel(false)
		if patch.Text != nil {
			t.Error("clean cancel appended text")
		}
		if patch.Status == nil || *patch.Status != chat.StatusCancelled {
			t.Errorf("status patch = %v, want cancelled", patch.Status)
		}
		if d.Phase() != PhaseCancelled {
			t.Errorf("phase = %v, want PhaseCancelled", d.Phase())
		}
	})

	t.Run("transport failure appends suffix exactly once", func(t *testing.T) {
		d := NewDraft()
		d.Reduce(chat.TextEvent("Partial answer"))

		patch := d.Cancel(true)
		if patch.Text == nil || *patch.Text != "Partial answer\n\nConnection error." {
			t.Errorf("text patch = %v, want connection error suffix", patch.Text)
		}
		if patch.Status == nil || *patch.Status != chat.StatusCancelled {
			t.Errorf("status patch = %v, want cancelled", patch.Status)
		}
	})
}

func TestReducePatchReplayIsIdempotent(t *testing.T) {
	events := []chat.AgentEvent{
		chat.TextEvent("Let me check."),
		chat.ToolUseEvent("Read", map[string]interface{}{"path": "go.mod"}),
		chat.ToolResultEvent("module codescout"),
		chat.TextEvent(" It's a web app."),
		chat.ResultEvent(chat.RunStats{ToolUses: 1, Tokens: 120, DurationMs: 800}),
	}

	once := chat.Turn{Status: chat.StatusInProgress}
	twice := chat.Turn{Status: chat.StatusInProgress}

	d1, d2 := NewDraft(), NewDraft()
	for _, ev := range events {
		p1 := d1.Reduce(ev)
		once.Apply(p1)

		p2 := d2.Reduce(ev)
		twice.Apply(p2)
		twice.Apply(p2) // network retry replays the same patch

		if once.Text != twice.Text || once.Status != twice.Status ||
			len(once.ToolCalls) != len(twice.ToolCalls) {
			t.Fatalf("replay diverged after %s: %+v vs %+v", ev.Type, once, twice)
		}
	}

	if once.Text != "Let me check. It's a web app." {
		t.Errorf("text = %q", once.Text)
	}
	if once.ToolsStartIndex == nil || *once.ToolsStartIndex != 13 {
		t.Errorf("tools_start_index = %v, want 13", once.ToolsStartIndex)
	}
	if once.Status != chat.StatusCompleted {
		t.Errorf("status = %q, want completed", once.Status)
	}
}

func TestReduceToolPatchesAreStableSnapshots(t *testing.T) {
	d := NewDraft()

	usePatch := d.Reduce(chat.ToolUseEvent("Read", map[string]interface{}{"path": "main.go"}))
	if len(usePatch.ToolCalls) != 1 || usePatch.ToolCalls[0].Result != nil {
		t.Fatalf("tool_use patch = %+v", usePatch.ToolCalls)
	}

	// Later events must not reach back into an already-emitted patch: those
	// patches are read by persistence goroutines after Reduce moves on.
	d.Reduce(chat.ToolResultEvent("package main"))
	if usePatch.ToolCalls[0].Result != nil {
		t.Error("tool_result mutated the earlier tool_use patch")
	}

	resultPatch := d.Reduce(chat.ToolUseEvent("Grep", nil))
	if len(usePatch.ToolCalls) != 1 {
		t.Errorf("earlier patch grew to %d calls", len(usePatch.ToolCalls))
	}

	d.Reduce(chat.ToolResultEvent("no matches"))
	if got := resultPatch.ToolCalls[1].Result; got != nil {
		t.Errorf("second tool_use patch gained result %q", *got)
	}
}
