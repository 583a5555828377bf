package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"codescout/internal/agent"
	"codescout/internal/domain/models/chat"
	"codescout/internal/sse"
)

// State is the runner's lifecycle position. Terminal branches collapse back
// to idle before Submit returns; callers observing StateIdle may submit.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateStreaming  State = "streaming"
)

var (
	// ErrRunActive rejects a submission while another run is still open.
	ErrRunActive = errors.New("a run is already active")
	// ErrEmptyInput rejects a submission whose trimmed prompt is empty.
	ErrEmptyInput = errors.New("prompt is empty")

	// Cancellation causes, used to tell a clean user stop apart from a
	// watchdog-triggered abort when the blocked read unblocks.
	errStopped     = errors.New("run stopped by user")
	errIdleTimeout = errors.New("stream idle timeout")
)

// StreamOpener opens the streaming request for one run and hands back the
// raw event byte stream. A non-2xx response must be returned as an error
// without a body.
type StreamOpener interface {
	OpenStream(ctx context.Context, conversationID string, req *agent.Request) (io.ReadCloser, error)
}

// Runner drives one submission end to end: user turn, assistant placeholder,
// stream request, event fold, terminal status. One run at a time; a failed
// or cancelled run is never retried automatically.
type Runner struct {
	store  *Store
	opener StreamOpener
	logger *slog.Logger

	// IdleTimeout aborts the run as a transport failure when no event
	// arrives for this long. Zero disables the watchdog.
	IdleTimeout time.Duration

	mu     sync.Mutex
	state  State
	cancel context.CancelCauseFunc
}

// NewRunner creates an idle runner over the given store and stream opener.
func NewRunner(store *Store, opener StreamOpener, logger *slog.Logger) *Runner {
	return &Runner{
		store:  store,
		opener: opener,
		logger: logger,
		state:  StateIdle,
	}
}

// State reports the current lifecycle position.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Stop aborts the active run cleanly. The assistant turn keeps whatever
// partial content it has and is marked cancelled without an error suffix.
// No-op when no run is active.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel(errStopped)
	}
}

// Submit runs one prompt to its terminal state and returns the conversation
// id (freshly allocated when conversationID is empty). It blocks until the
// assistant turn reaches a terminal status; Stop may be called from another
// goroutine to abort. Whatever the exit path, the runner returns to idle.
func (r *Runner) Submit(ctx context.Context, conversationID, repoID, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return conversationID, ErrEmptyInput
	}

	runCtx, cancel, err := r.begin(ctx)
	if err != nil {
		return conversationID, err
	}
	// Clearing the run handle on every exit path is what keeps the runner
	// submittable after a failure; a stale handle must never survive to
	// abort a later run.
	defer r.finish(cancel)

	if conversationID == "" {
		conversationID = r.store.CreateConversation(repoID)
	}

	// History is reconstructed before the new turns land: prior narrative
	// text only, with the fresh prompt carried separately in the request.
	history := r.store.History(conversationID)

	now := time.Now()
	userTurn := chat.Turn{
		ID:        uuid.New().String(),
		Role:      chat.RoleUser,
		Text:      prompt,
		Status:    chat.StatusCompleted,
		CreatedAt: now,
	}
	// The millisecond offset keeps the assistant turn strictly after the
	// user turn under created-at ordering.
	assistant := chat.Turn{
		ID:        uuid.New().String(),
		Role:      chat.RoleAssistant,
		Status:    chat.StatusInProgress,
		CreatedAt: now.Add(time.Millisecond),
	}
	r.store.AddTurn(conversationID, userTurn)
	r.store.AddTurn(conversationID, assistant)

	r.setState(StateStreaming)

	draft := NewDraft()
	body, err := r.opener.OpenStream(runCtx, conversationID, &agent.Request{
		RepoID:  repoID,
		Prompt:  prompt,
		History: history,
	})
	if err != nil {
		r.finalize(runCtx, conversationID, assistant.ID, draft, err)
		return conversationID, nil
	}
	defer body.Close()

	var watchdog *time.Timer
	if r.IdleTimeout > 0 {
		watchdog = time.AfterFunc(r.IdleTimeout, func() {
			cancel(errIdleTimeout)
		})
		defer watchdog.Stop()
	}

	decoder := sse.NewDecoder(body)
	for {
		ev, err := decoder.Next()
		if err != nil {
			r.finalize(runCtx, conversationID, assistant.ID, draft, err)
			return conversationID, nil
		}
		if watchdog != nil {
			watchdog.Reset(r.IdleTimeout)
		}
		if ev.Type == chat.EventDone {
			r.finalize(runCtx, conversationID, assistant.ID, draft, nil)
			return conversationID, nil
		}
		if patch := draft.Reduce(ev); !patch.IsZero() {
			r.store.UpdateTurn(conversationID, assistant.ID, patch)
		}
	}
}

// begin claims the single run slot and installs the cancellation handle.
func (r *Runner) begin(ctx context.Context) (context.Context, context.CancelCauseFunc, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateIdle {
		return nil, nil, ErrRunActive
	}
	runCtx, cancel := context.WithCancelCause(ctx)
	r.state = StateSubmitting
	r.cancel = cancel
	return runCtx, cancel, nil
}

// finish releases the run slot and the cancellation handle.
func (r *Runner) finish(cancel context.CancelCauseFunc) {
	cancel(nil)
	r.mu.Lock()
	r.state = StateIdle
	r.cancel = nil
	r.mu.Unlock()
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// finalize settles the assistant turn's terminal status once the stream is
// over. A run that saw its result frame is already completed and needs no
// patch. Otherwise the turn is cancelled: cleanly for a user stop or a
// stream that simply ended, with a connection-error suffix for everything
// else. Partial text and tool calls are always preserved.
func (r *Runner) finalize(ctx context.Context, conversationID, turnID string, draft *Draft, streamErr error) {
	if draft.Phase() == PhaseCompleted {
		return
	}

	transportFailure := false
	switch cause := context.Cause(ctx); {
	case errors.Is(cause, errStopped):
		r.logger.Info("run stopped", "conversation_id", conversationID)
	case errors.Is(cause, errIdleTimeout):
		r.logger.Warn("run aborted by idle timeout", "conversation_id", conversationID)
		transportFailure = true
	case streamErr != nil && !errors.Is(streamErr, io.EOF):
		r.logger.Warn("stream failed", "conversation_id", conversationID, "error", streamErr)
		transportFailure = true
	default:
		// Stream ended without a result frame: treat as a clean stop.
		r.logger.Info("stream ended before completion", "conversation_id", conversationID)
	}

	r.store.UpdateTurn(conversationID, turnID, draft.Cancel(transportFailure))
}
