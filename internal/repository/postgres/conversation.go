package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"codescout/internal/domain"
	"codescout/internal/domain/models/chat"
	"codescout/internal/domain/repositories"
)

// PostgresConversationRepository implements ConversationRepository using PostgreSQL
type PostgresConversationRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewConversationRepository creates a new PostgresConversationRepository
func NewConversationRepository(config *RepositoryConfig) repositories.ConversationRepository {
	return &PostgresConversationRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// CreateConversation inserts a conversation with a caller-allocated id.
func (r *PostgresConversationRepository) CreateConversation(ctx context.Context, conv *chat.Conversation) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, repo_id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.tables.Conversations)

	_, err := r.pool.Exec(ctx, query,
		conv.ID,
		conv.RepoID,
		conv.UserID,
		conv.Title,
		conv.CreatedAt,
		conv.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("conversation %s already exists", conv.ID),
				ResourceType: "conversation",
				ResourceID:   conv.ID,
			}
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("repo %s: %w", conv.RepoID, domain.ErrNotFound)
		}
		return fmt.Errorf("create conversation: %w", err)
	}

	return nil
}

// GetConversation retrieves a conversation by ID
func (r *PostgresConversationRepository) GetConversation(ctx context.Context, conversationID, userID string) (*chat.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, repo_id, user_id, title, created_at, updated_at, deleted_at
		FROM %s
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, r.tables.Conversations)

	var conv chat.Conversation
	err := r.pool.QueryRow(ctx, query, conversationID, userID).Scan(
		&conv.ID,
		&conv.RepoID,
		&conv.UserID,
		&conv.Title,
		&conv.CreatedAt,
		&conv.UpdatedAt,
		&conv.DeletedAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	return &conv, nil
}

// ListConversations retrieves one page of a user's conversations, most
// recently updated first. Fetches limit+1 rows to compute has_more.
func (r *PostgresConversationRepository) ListConversations(ctx context.Context, userID string, p repositories.Pagination) (*repositories.ConversationPage, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT id, repo_id, user_id, title, created_at, updated_at, deleted_at
		FROM %s
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`, r.tables.Conversations)

	rows, err := r.pool.Query(ctx, query, userID, limit+1, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var items []chat.Conversation
	for rows.Next() {
		var conv chat.Conversation
		err := rows.Scan(
			&conv.ID,
			&conv.RepoID,
			&conv.UserID,
			&conv.Title,
			&conv.CreatedAt,
			&conv.UpdatedAt,
			&conv.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		items = append(items, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	if items == nil {
		items = []chat.Conversation{}
	}

	return &repositories.ConversationPage{Items: items, HasMore: hasMore}, nil
}

// UpdateConversation updates a conversation's mutable fields (title, updated_at)
func (r *PostgresConversationRepository) UpdateConversation(ctx context.Context, conv *chat.Conversation) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4 AND deleted_at IS NULL
	`, r.tables.Conversations)

	result, err := r.pool.Exec(ctx, query,
		conv.Title,
		conv.UpdatedAt,
		conv.ID,
		conv.UserID,
	)

	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", conv.ID, domain.ErrNotFound)
	}

	return nil
}

// DeleteConversation soft-deletes a conversation
func (r *PostgresConversationRepository) DeleteConversation(ctx context.Context, conversationID, userID string) (*chat.Conversation, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
		RETURNING id, repo_id, user_id, title, created_at, updated_at, deleted_at
	`, r.tables.Conversations)

	var conv chat.Conversation
	err := r.pool.QueryRow(ctx, query, conversationID, userID).Scan(
		&conv.ID,
		&conv.RepoID,
		&conv.UserID,
		&conv.Title,
		&conv.CreatedAt,
		&conv.UpdatedAt,
		&conv.DeletedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("delete conversation: %w", err)
	}

	return &conv, nil
}

// AppendTurn inserts a turn. Tool calls and stats are stored as JSONB.
func (r *PostgresConversationRepository) AppendTurn(ctx context.Context, turn *chat.Turn) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, conversation_id, role, text, tool_calls, tools_start_index, stats, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.tables.Turns)

	_, err := r.pool.Exec(ctx, query,
		turn.ID,
		turn.ConversationID,
		turn.Role,
		turn.Text,
		turn.ToolCalls, // pgx encodes slice -> JSONB (nil becomes NULL)
		turn.ToolsStartIndex,
		turn.Stats, // pgx encodes struct -> JSONB (nil becomes NULL)
		turn.Status,
		turn.CreatedAt,
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("conversation %s: %w", turn.ConversationID, domain.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("turn %s already exists", turn.ID),
				ResourceType: "turn",
				ResourceID:   turn.ID,
			}
		}
		return fmt.Errorf("append turn: %w", err)
	}

	return nil
}

// PatchTurn applies a partial update to a turn. Only fields present on the
// patch appear in the SET clause, so replays of the same patch are idempotent.
func (r *PostgresConversationRepository) PatchTurn(ctx context.Context, turnID string, patch chat.TurnPatch) error {
	if patch.IsZero() {
		return nil
	}

	var set []string
	var args []interface{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Text != nil {
		add("text", *patch.Text)
	}
	if patch.ToolCalls != nil {
		add("tool_calls", patch.ToolCalls)
	}
	if patch.ToolsStartIndex != nil {
		add("tools_start_index", *patch.ToolsStartIndex)
	}
	if patch.Stats != nil {
		add("stats", patch.Stats)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}

	args = append(args, turnID)
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`,
		r.tables.Turns, strings.Join(set, ", "), len(args))

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("patch turn: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("turn %s: %w", turnID, domain.ErrNotFound)
	}

	return nil
}

// ListTurns retrieves all turns of a conversation ordered by created_at.
func (r *PostgresConversationRepository) ListTurns(ctx context.Context, conversationID string) ([]chat.Turn, error) {
	query := fmt.Sprintf(`
		SELECT id, conversation_id, role, text, tool_calls, tools_start_index, stats, status, created_at
		FROM %s
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`, r.tables.Turns)

	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []chat.Turn
	for rows.Next() {
		var turn chat.Turn
		err := rows.Scan(
			&turn.ID,
			&turn.ConversationID,
			&turn.Role,
			&turn.Text,
			&turn.ToolCalls, // pgx decodes JSONB -> slice
			&turn.ToolsStartIndex,
			&turn.Stats, // pgx decodes JSONB -> struct
			&turn.Status,
			&turn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	if turns == nil {
		turns = []chat.Turn{}
	}

	return turns, nil
}
