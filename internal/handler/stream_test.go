package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"codescout/internal/agent"
	"codescout/internal/domain"
	"codescout/internal/domain/models/chat"
	"codescout/internal/domain/repositories"
	"codescout/internal/domain/services"
	"codescout/internal/httputil"
	"codescout/internal/sse"
)

// fakeConvService serves a single known conversation.
type fakeConvService struct {
	conversation *chat.Conversation
}

func (f *fakeConvService) CreateConversation(ctx context.Context, req *services.CreateConversationRequest) (*chat.Conversation, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeConvService) GetConversation(ctx context.Context, id, userID string) (*chat.Conversation, error) {
	if f.conversation != nil && f.conversation.ID == id && f.conversation.UserID == userID {
		return f.conversation, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeConvService) ListConversations(ctx context.Context, userID string, p repositories.Pagination) (*repositories.ConversationPage, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeConvService) UpdateConversation(ctx context.Context, id, userID string, req *services.UpdateConversationRequest) (*chat.Conversation, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeConvService) DeleteConversation(ctx context.Context, id, userID string) error {
	return errors.New("not implemented")
}

func (f *fakeConvService) AppendTurn(ctx context.Context, conversationID, userID string, turn *chat.Turn) (*chat.Turn, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeConvService) PatchTurn(ctx context.Context, turnID string, patch chat.TurnPatch) error {
	return errors.New("not implemented")
}

func (f *fakeConvService) ListTurns(ctx context.Context, conversationID, userID string) ([]chat.Turn, error) {
	return nil, errors.New("not implemented")
}

// fixedSource replays a scripted event list.
type fixedSource struct {
	events []chat.AgentEvent
}

func (f *fixedSource) Stream(ctx context.Context, req *agent.Request) (<-chan chat.AgentEvent, error) {
	out := make(chan chat.AgentEvent, len(f.events))
	for _, ev := range f.events {
		out <- ev
	}
	close(out)
	return out, nil
}

func newStreamServer(t *testing.T, source agent.Source, conv *chat.Conversation) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewStreamHandler(source, &fakeConvService{conversation: conv}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/conversations/{id}/stream", func(w http.ResponseWriter, r *http.Request) {
		h.StreamRun(w, httputil.WithUserID(r, "u1"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func postStream(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestStreamRunRelaysEventsAsSSE(t *testing.T) {
	conv := &chat.Conversation{ID: "c1", RepoID: "r1", UserID: "u1"}
	source := &fixedSource{events: []chat.AgentEvent{
		chat.TextEvent("Let me check."),
		chat.ToolUseEvent("Read", map[string]interface{}{"path": "main.go"}),
		chat.ToolResultEvent("package main"),
		chat.ResultEvent(chat.RunStats{ToolUses: 1, Tokens: 50, DurationMs: 5}),
		chat.DoneEvent(),
	}}
	server := newStreamServer(t, source, conv)

	resp := postStream(t, server.URL+"/api/conversations/c1/stream", `{"prompt":"what is this"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	decoder := sse.NewDecoder(resp.Body)
	var types []string
	for {
		ev, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		types = append(types, ev.Type)
	}

	want := []string{"text", "tool_use", "tool_result", "result", "done"}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, types[i], want[i])
		}
	}
}

func TestStreamRunAppendsDoneWhenSourceHangsUp(t *testing.T) {
	conv := &chat.Conversation{ID: "c1", RepoID: "r1", UserID: "u1"}
	// Source closes without its terminal frame.
	source := &fixedSource{events: []chat.AgentEvent{chat.TextEvent("partial")}}
	server := newStreamServer(t, source, conv)

	resp := postStream(t, server.URL+"/api/conversations/c1/stream", `{"prompt":"hi"}`)
	decoder := sse.NewDecoder(resp.Body)

	var last chat.AgentEvent
	for {
		ev, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		last = ev
	}
	if last.Type != chat.EventDone {
		t.Errorf("last event = %q, want done", last.Type)
	}
}

func TestStreamRunValidatesBeforeStreaming(t *testing.T) {
	conv := &chat.Conversation{ID: "c1", RepoID: "r1", UserID: "u1"}
	server := newStreamServer(t, &fixedSource{}, conv)

	t.Run("empty prompt", func(t *testing.T) {
		resp := postStream(t, server.URL+"/api/conversations/c1/stream", `{"prompt":""}`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("unknown conversation", func(t *testing.T) {
		resp := postStream(t, server.URL+"/api/conversations/nope/stream", `{"prompt":"hi"}`)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := postStream(t, server.URL+"/api/conversations/c1/stream", `{broken`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}
