package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkoppen/linguachat/internal/domain"
)

// SessionRepository implements domain.SessionRepository on sqlite
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	query := `
		INSERT INTO chat_sessions (id, title, theme, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.conn.ExecContext(ctx, query,
		session.ID.String(),
		session.Title,
		string(session.Theme),
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.ChatSession, error) {
	query := `
		SELECT id, title, theme, created_at, updated_at
		FROM chat_sessions
		WHERE id = ?
	`
	s, err := scanSession(r.db.conn.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) List(ctx context.Context) ([]domain.ChatSession, error) {
	query := `
		SELECT id, title, theme, created_at, updated_at
		FROM chat_sessions
		ORDER BY updated_at DESC
	`
	rows, err := r.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.ChatSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) SetTheme(ctx context.Context, id uuid.UUID, theme domain.Theme) error {
	query := `UPDATE chat_sessions SET theme = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.conn.ExecContext(ctx, query, string(theme), time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("failed to set theme: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check theme update: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a session; messages cascade via the foreign key.
func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.conn.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check session delete: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.ChatSession, error) {
	var (
		s        domain.ChatSession
		idStr    string
		themeStr string
	)
	if err := row.Scan(&idStr, &s.Title, &themeStr, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", idStr, err)
	}
	s.ID = id
	s.Theme = domain.Theme(themeStr)
	return &s, nil
}
