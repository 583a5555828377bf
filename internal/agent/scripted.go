package agent

import (
	"context"
	"strings"
	"time"

	loremgen "github.com/bozaro/golorem"

	"codescout/internal/domain/models/chat"
)

// ScriptedSource is a mock agent that generates lorem ipsum narration and
// fake tool explorations against the embedded tool catalog. Used for
// development and testing without a real agent engine or API keys.
type ScriptedSource struct {
	catalog   *Catalog
	generator *loremgen.Lorem

	// Delay between emitted words; zero means no pacing (tests).
	Delay time.Duration
	// Rounds is the number of tool invocations per run.
	Rounds int
}

// NewScriptedSource creates a scripted source over the given catalog.
func NewScriptedSource(catalog *Catalog) *ScriptedSource {
	return &ScriptedSource{
		catalog:   catalog,
		generator: loremgen.New(),
		Delay:     50 * time.Millisecond,
		Rounds:    2,
	}
}

// Stream runs one scripted agent turn: pre-tool narration, a few tool
// invocations with truncated results, a post-tool answer, final stats, done.
func (s *ScriptedSource) Stream(ctx context.Context, req *Request) (<-chan chat.AgentEvent, error) {
	events := make(chan chat.AgentEvent, 16)
	started := time.Now()

	go func() {
		defer close(events)

		toolUses := 0
		tokens := s.estimateTokens(req)

		// Planning narration before any tool runs.
		n, ok := s.emitSentence(ctx, events, 8, 14)
		if !ok {
			return
		}
		tokens += n

		for round := 0; round < s.Rounds; round++ {
			tool := s.catalog.Tools[round%len(s.catalog.Tools)]
			if !s.emit(ctx, events, chat.ToolUseEvent(tool.Name, tool.SampleInput)) {
				return
			}
			toolUses++

			result := TruncateResult(s.generator.Paragraph(3, 6))
			if !s.emit(ctx, events, chat.ToolResultEvent(result)) {
				return
			}
			tokens += len(strings.Fields(result))

			if round < s.Rounds-1 {
				if !s.emit(ctx, events, chat.NewTurnEvent()) {
					return
				}
			}
		}

		// Final answer after exploration.
		n, ok = s.emitSentence(ctx, events, 15, 30)
		if !ok {
			return
		}
		tokens += n

		stats := chat.RunStats{
			ToolUses:   toolUses,
			Tokens:     tokens,
			DurationMs: time.Since(started).Milliseconds(),
		}
		if !s.emit(ctx, events, chat.ResultEvent(stats)) {
			return
		}
		s.emit(ctx, events, chat.DoneEvent())
	}()

	return events, nil
}

// emitSentence streams one generated sentence word by word.
// Returns the word count and whether the run should continue.
func (s *ScriptedSource) emitSentence(ctx context.Context, events chan<- chat.AgentEvent, minWords, maxWords int) (int, bool) {
	words := strings.Fields(s.generator.Sentence(minWords, maxWords))
	for i, word := range words {
		fragment := word
		if i < len(words)-1 {
			fragment += " "
		}
		if !s.emit(ctx, events, chat.TextEvent(fragment)) {
			return i, false
		}
		if s.Delay > 0 {
			time.Sleep(s.Delay)
		}
	}
	return len(words), true
}

func (s *ScriptedSource) emit(ctx context.Context, events chan<- chat.AgentEvent, ev chat.AgentEvent) bool {
	select {
	case <-ctx.Done():
		return false
	case events <- ev:
		return true
	}
}

// estimateTokens approximates the prompt-side token count by word count.
func (s *ScriptedSource) estimateTokens(req *Request) int {
	total := len(strings.Fields(req.Prompt))
	for _, msg := range req.History {
		total += len(strings.Fields(msg.Content))
	}
	return total
}
