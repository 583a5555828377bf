package sse

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"codescout/internal/domain/models/chat"
)

// readChunkSize is the transport read granularity. Frames routinely arrive
// split across reads; the decoder buffers the partial trailing frame and
// prepends it to the next chunk.
const readChunkSize = 4096

// Decoder incrementally decodes a byte stream of server-sent-event frames
// back into typed agent events.
//
// Malformed frames, comment lines, and partial trailing data at stream end
// are dropped silently; no event is emitted for them.
type Decoder struct {
	r     io.Reader
	buf   []byte
	chunk []byte
}

// NewDecoder returns a decoder reading frames from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:     r,
		chunk: make([]byte, readChunkSize),
	}
}

// Next blocks until the next well-formed event arrives and returns it.
// It returns io.EOF when the stream ends, and any transport read error
// otherwise. Events are returned in strict arrival order.
func (d *Decoder) Next() (chat.AgentEvent, error) {
	for {
		// Drain complete frames already buffered before reading again.
		for {
			idx := bytes.Index(d.buf, []byte("\n\n"))
			if idx < 0 {
				break
			}
			frame := d.buf[:idx]
			d.buf = d.buf[idx+2:]

			ev, ok := parseFrame(frame)
			if !ok {
				continue
			}
			return ev, nil
		}

		n, err := d.r.Read(d.chunk)
		if n > 0 {
			d.buf = append(d.buf, d.chunk[:n]...)
			continue
		}
		if err != nil {
			// Partial trailing data (no closing frame boundary) is discarded.
			return chat.AgentEvent{}, err
		}
	}
}

// parseFrame extracts the data payload of one frame and unmarshals it.
// Returns ok=false for comments, empty frames, unparseable JSON, and events
// outside the known vocabulary.
func parseFrame(frame []byte) (chat.AgentEvent, bool) {
	var data []string
	for _, line := range strings.Split(string(frame), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if payload, ok := strings.CutPrefix(line, "data:"); ok {
			data = append(data, strings.TrimPrefix(payload, " "))
		}
		// Other SSE fields (event:, id:, retry:) carry no domain payload here.
	}
	if len(data) == 0 {
		return chat.AgentEvent{}, false
	}

	var ev chat.AgentEvent
	if err := json.Unmarshal([]byte(strings.Join(data, "\n")), &ev); err != nil {
		return chat.AgentEvent{}, false
	}
	if !chat.KnownEventType(ev.Type) {
		return chat.AgentEvent{}, false
	}
	return ev, true
}
