package sse

import (
	"encoding/json"
	"fmt"
	"net/http"

	"codescout/internal/domain/models/chat"
)

// Writer encodes agent events as server-sent-event frames on a long-lived
// HTTP response. Each event becomes one frame of the form
//
//	data: <JSON>\n\n
//
// and is flushed immediately; the writer does no buffering of its own beyond
// what the transport requires.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares w for streaming and returns a frame writer. It fails if
// the underlying connection does not support flushing.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	return &Writer{w: w, flusher: flusher}, nil
}

// WriteEvent encodes one event as a frame and flushes it to the client.
// Returns an error if the connection is closed or the write fails.
func (s *Writer) WriteEvent(ev chat.AgentEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	s.flusher.Flush()
	return nil
}

// WriteKeepAlive writes an SSE comment (: keepalive) and flushes.
// SSE spec: lines starting with : are comments, ignored by clients.
func (s *Writer) WriteKeepAlive() error {
	if _, err := fmt.Fprintf(s.w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("write keepalive failed: %w", err)
	}

	s.flusher.Flush()
	return nil
}
