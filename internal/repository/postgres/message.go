package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkoppen/linguachat/internal/domain"
)

// MessageRepository implements domain.MessageRepository
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// Append inserts a message and bumps the session's updated_at in one
// transaction, so concurrent turns on the same session never lose the
// recency bump.
func (r *MessageRepository) Append(ctx context.Context, message *domain.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO messages (id, session_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(ctx, insert,
		message.ID,
		message.SessionID,
		message.Role,
		message.Content,
		message.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	touch := `UPDATE chat_sessions SET updated_at = $1 WHERE id = $2`
	tag, err := tx.Exec(ctx, touch, message.CreatedAt, message.SessionID)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}
	return nil
}

// ListBySession retrieves a session's messages in chronological order.
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.Message, error) {
	query := `
		SELECT id, session_id, role, content, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var roleStr string
		if err := rows.Scan(
			&m.ID,
			&m.SessionID,
			&roleStr,
			&m.Content,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = domain.MessageRole(roleStr)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
