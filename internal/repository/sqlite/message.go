package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mkoppen/linguachat/internal/domain"
)

// MessageRepository implements domain.MessageRepository on sqlite
type MessageRepository struct {
	db *DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append inserts a message and bumps the session's updated_at in one
// transaction.
func (r *MessageRepository) Append(ctx context.Context, message *domain.Message) error {
	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO messages (id, session_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, insert,
		message.ID.String(),
		message.SessionID.String(),
		string(message.Role),
		message.Content,
		message.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	touch := `UPDATE chat_sessions SET updated_at = ? WHERE id = ?`
	result, err := tx.ExecContext(ctx, touch, message.CreatedAt, message.SessionID.String())
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check session touch: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}
	return nil
}

// ListBySession retrieves a session's messages in chronological order.
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.Message, error) {
	query := `
		SELECT id, session_id, role, content, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY created_at, id
	`
	rows, err := r.db.conn.QueryContext(ctx, query, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var (
			m       domain.Message
			idStr   string
			sidStr  string
			roleStr string
		)
		if err := rows.Scan(&idStr, &sidStr, &roleStr, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid message id %q: %w", idStr, err)
		}
		sid, err := uuid.Parse(sidStr)
		if err != nil {
			return nil, fmt.Errorf("invalid session id %q: %w", sidStr, err)
		}
		m.ID = id
		m.SessionID = sid
		m.Role = domain.MessageRole(roleStr)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
