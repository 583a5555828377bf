package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"codescout/internal/domain/models/chat"
)

func TestTruncateResult(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"short passes through", "short output", "short output"},
		{"exactly at limit", strings.Repeat("a", ResultLimit), strings.Repeat("a", ResultLimit)},
		{"over limit is clipped", strings.Repeat("a", ResultLimit+100), strings.Repeat("a", ResultLimit) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateResult(tt.content); got != tt.want {
				t.Errorf("length %d, want %d", len(got), len(tt.want))
			}
		})
	}

	t.Run("limit counts runes", func(t *testing.T) {
		content := strings.Repeat("ü", ResultLimit+1)
		got := TruncateResult(content)
		if got != strings.Repeat("ü", ResultLimit)+"..." {
			t.Errorf("multibyte truncation wrong, got %d bytes", len(got))
		}
	})
}

func TestLoadCatalog(t *testing.T) {
	catalog, err := LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(catalog.Tools) == 0 {
		t.Fatal("catalog is empty")
	}

	tool, ok := catalog.Lookup("Read")
	if !ok {
		t.Fatal("Read tool missing from catalog")
	}
	if tool.Description == "" || tool.SampleInput == nil {
		t.Errorf("Read tool incomplete: %+v", tool)
	}
	if _, ok := catalog.Lookup("NoSuchTool"); ok {
		t.Error("Lookup found a tool that does not exist")
	}
}

func TestScriptedSourceProtocol(t *testing.T) {
	catalog, err := LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	source := NewScriptedSource(catalog)
	source.Delay = 0
	source.Rounds = 2

	events, err := source.Stream(context.Background(), &Request{
		Prompt:  "what does this repo do",
		History: []Message{{Role: chat.RoleUser, Content: "earlier question"}},
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var (
		order      []string
		toolUses   int
		resultSeen *chat.RunStats
		doneLast   bool
	)
	for ev := range events {
		order = append(order, ev.Type)
		doneLast = ev.Type == chat.EventDone
		switch ev.Type {
		case chat.EventToolUse:
			toolUses++
			if ev.Tool == "" {
				t.Error("tool_use without tool name")
			}
		case chat.EventToolResult:
			if len([]rune(ev.Content)) > ResultLimit+3 {
				t.Errorf("tool result exceeds limit: %d runes", len([]rune(ev.Content)))
			}
		case chat.EventResult:
			resultSeen = ev.Stats
		}
	}

	if toolUses != 2 {
		t.Errorf("tool uses = %d, want 2", toolUses)
	}
	if resultSeen == nil {
		t.Fatal("no result event")
	}
	if resultSeen.ToolUses != 2 {
		t.Errorf("stats tool uses = %d, want 2", resultSeen.ToolUses)
	}
	if resultSeen.Tokens <= 0 {
		t.Error("stats tokens not populated")
	}
	if !doneLast {
		t.Errorf("stream did not end with done: %v", order)
	}

	// Text must precede the first tool use (planning narration).
	firstTool := -1
	for i, typ := range order {
		if typ == chat.EventToolUse {
			firstTool = i
			break
		}
	}
	if firstTool <= 0 || order[0] != chat.EventText {
		t.Errorf("no narration before first tool use: %v", order)
	}
}

func TestScriptedSourceStopsOnCancel(t *testing.T) {
	catalog, err := LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	source := NewScriptedSource(catalog)
	source.Delay = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	events, err := source.Stream(ctx, &Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	<-events
	cancel()

	// The channel must close promptly once the run is aborted.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-events:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("channel did not close after cancel")
		}
	}
}
