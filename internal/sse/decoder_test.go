package sse

import (
	"errors"
	"io"
	"strings"
	"testing"

	"codescout/internal/domain/models/chat"
)

// dribbleReader returns one byte per Read call to force frame splits at
// every possible boundary.
type dribbleReader struct {
	data string
	pos  int
}

func (d *dribbleReader) Read(p []byte) (int, error) {
	if d.pos >= len(d.data) {
		return 0, io.EOF
	}
	p[0] = d.data[d.pos]
	d.pos++
	return 1, nil
}

func collect(t *testing.T, d *Decoder) []chat.AgentEvent {
	t.Helper()
	var events []chat.AgentEvent
	for {
		ev, err := d.Next()
		if errors.Is(err, io.EOF) {
			return events
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		events = append(events, ev)
	}
}

func TestDecoderReassemblesSplitFrames(t *testing.T) {
	stream := `data: {"type":"text","content":"Hello"}` + "\n\n" +
		`data: {"type":"tool_use","tool":"Read","input":{"path":"go.mod"}}` + "\n\n" +
		`data: {"type":"done"}` + "\n\n"

	events := collect(t, NewDecoder(&dribbleReader{data: stream}))
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	if events[0].Type != chat.EventText || events[0].Content != "Hello" {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[1].Tool != "Read" {
		t.Errorf("events[1] = %+v", events[1])
	}
	if events[2].Type != chat.EventDone {
		t.Errorf("events[2] = %+v", events[2])
	}
}

func TestDecoderDropsNoise(t *testing.T) {
	stream := ": keepalive\n\n" + // comment frame
		"data: {broken json\n\n" + // unparseable
		`data: {"type":"telemetry","content":"x"}` + "\n\n" + // unknown type
		"event: custom\nid: 7\n\n" + // no data field at all
		`data: {"type":"text","content":"kept"}` + "\n\n" +
		`data: {"type":"text","content":"tail without boundary"` // partial trailing

	events := collect(t, NewDecoder(strings.NewReader(stream)))
	if len(events) != 1 {
		t.Fatalf("events = %+v, want only the well-formed frame", events)
	}
	if events[0].Content != "kept" {
		t.Errorf("content = %q", events[0].Content)
	}
}

func TestDecoderHandlesCRLFAndSpacing(t *testing.T) {
	stream := "data: {\"type\":\"text\",\"content\":\"a\"}\r\n\n" +
		"data:{\"type\":\"text\",\"content\":\"b\"}\n\n"

	events := collect(t, NewDecoder(strings.NewReader(stream)))
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Content != "a" || events[1].Content != "b" {
		t.Errorf("events = %+v", events)
	}
}

func TestDecoderPreservesArrivalOrder(t *testing.T) {
	var b strings.Builder
	b.WriteString(`data: {"type":"text","content":"1"}` + "\n\n")
	b.WriteString(`data: {"type":"text","content":"2"}` + "\n\n")
	b.WriteString(`data: {"type":"text","content":"3"}` + "\n\n")

	events := collect(t, NewDecoder(strings.NewReader(b.String())))
	got := ""
	for _, ev := range events {
		got += ev.Content
	}
	if got != "123" {
		t.Errorf("order = %q, want 123", got)
	}
}

func TestDecoderSurfacesTransportError(t *testing.T) {
	wantErr := errors.New("connection reset")
	d := NewDecoder(io.MultiReader(
		strings.NewReader(`data: {"type":"text","content":"x"}`+"\n\n"),
		&errReader{err: wantErr},
	))

	if _, err := d.Next(); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if _, err := d.Next(); !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

type errReader struct{ err error }

func (e *errReader) Read(p []byte) (int, error) { return 0, e.err }
