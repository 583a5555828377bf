package client

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"codescout/internal/agent"
	"codescout/internal/domain/models/chat"
)

// persistTimeout bounds each queued durable-storage call.
const persistTimeout = 10 * time.Second

// Persistence is the durable-storage collaborator the store syncs to.
// Calls are best-effort: failures are logged and swallowed, never surfaced
// to the in-memory state, which stays authoritative for the session.
type Persistence interface {
	CreateConversation(ctx context.Context, conv *chat.Conversation) error
	AppendTurn(ctx context.Context, turn *chat.Turn) error
	PatchTurn(ctx context.Context, turnID string, patch chat.TurnPatch) error
}

// Store holds the ordered turn lists of the conversations in this session.
// All mutations are applied optimistically in memory first and then pushed to
// durable storage asynchronously, so the streaming loop never blocks on
// persistence. Mutations are serialized behind a single mutex to preserve
// event ordering when callers run on separate goroutines.
type Store struct {
	mu            sync.Mutex
	conversations map[string]*chat.Conversation
	persist       Persistence
	logger        *slog.Logger

	jobMu   sync.Mutex
	jobs    []persistJob
	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

type persistJob struct {
	op string
	fn func(ctx context.Context) error
}

// NewStore creates an empty store syncing to the given persistence
// collaborator and starts its sync worker.
func NewStore(persist Persistence, logger *slog.Logger) *Store {
	s := &Store{
		conversations: make(map[string]*chat.Conversation),
		persist:       persist,
		logger:        logger,
		wake:          make(chan struct{}, 1),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go s.syncLoop()
	return s
}

// Close flushes the queued durable-storage calls and stops the sync worker.
// Calls enqueued after Close are dropped.
func (s *Store) Close() {
	close(s.done)
	<-s.stopped
}

// CreateConversation allocates a new conversation with the placeholder title
// and returns its id synchronously, without waiting on the durable create.
// The first prompt of a new conversation must not be lost waiting on a
// network round-trip.
func (s *Store) CreateConversation(repoID string) string {
	now := time.Now()
	conv := &chat.Conversation{
		ID:        uuid.New().String(),
		RepoID:    repoID,
		Title:     chat.DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.conversations[conv.ID] = conv
	s.mu.Unlock()

	snapshot := *conv
	s.background("create conversation", func(ctx context.Context) error {
		return s.persist.CreateConversation(ctx, &snapshot)
	})

	return conv.ID
}

// Load seeds a conversation from durable storage (reload path). Turns are
// re-sorted by creation time; physical row order from storage is not trusted.
func (s *Store) Load(conv chat.Conversation, turns []chat.Turn) {
	sortTurns(turns)
	conv.Turns = turns

	s.mu.Lock()
	s.conversations[conv.ID] = &conv
	s.mu.Unlock()
}

// AddTurn appends a turn to the conversation, derives the title from the
// first user turn while the placeholder title is still in place, bumps
// updated-at, and issues the durable append.
func (s *Store) AddTurn(conversationID string, turn chat.Turn) {
	turn.ConversationID = conversationID

	s.mu.Lock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("add turn for unknown conversation", "conversation_id", conversationID)
		return
	}
	conv.Turns = append(conv.Turns, turn)
	if turn.Role == chat.RoleUser && conv.Title == chat.DefaultTitle {
		conv.Title = chat.DeriveTitle(turn.Text)
	}
	conv.UpdatedAt = time.Now()
	s.mu.Unlock()

	s.background("append turn", func(ctx context.Context) error {
		return s.persist.AppendTurn(ctx, &turn)
	})
}

// UpdateTurn merges a partial update into the matching turn and issues the
// durable patch. Patches are idempotent under replay: appends and
// last-element overwrites only, never increments.
func (s *Store) UpdateTurn(conversationID, turnID string, patch chat.TurnPatch) {
	s.mu.Lock()
	conv, ok := s.conversations[conversationID]
	if ok {
		for i := range conv.Turns {
			if conv.Turns[i].ID == turnID {
				conv.Turns[i].Apply(patch)
				break
			}
		}
		conv.UpdatedAt = time.Now()
	}
	s.mu.Unlock()

	if !ok {
		s.logger.Warn("update turn for unknown conversation", "conversation_id", conversationID)
		return
	}

	s.background("patch turn", func(ctx context.Context) error {
		return s.persist.PatchTurn(ctx, turnID, patch)
	})
}

// Conversation returns a snapshot of the conversation and whether it exists.
func (s *Store) Conversation(conversationID string) (chat.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return chat.Conversation{}, false
	}
	snapshot := *conv
	snapshot.Turns = append([]chat.Turn(nil), conv.Turns...)
	sortTurns(snapshot.Turns)
	return snapshot, true
}

// Turn returns a snapshot of one turn.
func (s *Store) Turn(conversationID, turnID string) (chat.Turn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return chat.Turn{}, false
	}
	for i := range conv.Turns {
		if conv.Turns[i].ID == turnID {
			return conv.Turns[i], true
		}
	}
	return chat.Turn{}, false
}

// History reconstructs the prompt history for a new run: all prior turns
// sorted by creation time, reduced to role/content pairs. Tool calls and
// tool results are never replayed, only the narrative text.
func (s *Store) History(conversationID string) []agent.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil
	}

	turns := append([]chat.Turn(nil), conv.Turns...)
	sortTurns(turns)

	history := make([]agent.Message, 0, len(turns))
	for _, turn := range turns {
		if turn.Text == "" {
			continue
		}
		history = append(history, agent.Message{Role: turn.Role, Content: turn.Text})
	}
	return history
}

// background enqueues one durable-storage call without blocking the caller.
// A single worker drains the queue in enqueue order, so two updates to the
// same turn cannot reach storage reversed. Errors are logged and swallowed;
// the in-memory state already applied is the source of truth for this session.
func (s *Store) background(op string, fn func(ctx context.Context) error) {
	s.jobMu.Lock()
	s.jobs = append(s.jobs, persistJob{op: op, fn: fn})
	s.jobMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Store) syncLoop() {
	defer close(s.stopped)
	for {
		select {
		case <-s.wake:
			s.drainJobs()
		case <-s.done:
			s.drainJobs()
			return
		}
	}
}

func (s *Store) drainJobs() {
	for {
		s.jobMu.Lock()
		if len(s.jobs) == 0 {
			s.jobMu.Unlock()
			return
		}
		job := s.jobs[0]
		s.jobs = s.jobs[1:]
		s.jobMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		err := job.fn(ctx)
		cancel()
		if err != nil {
			s.logger.Warn("durable sync failed", "op", job.op, "error", err)
		}
	}
}

func sortTurns(turns []chat.Turn) {
	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].CreatedAt.Before(turns[j].CreatedAt)
	})
}
