package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkoppen/linguachat/internal/domain"
)

// SessionRepository implements domain.SessionRepository
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	query := `
		INSERT INTO chat_sessions (id, title, theme, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.Title,
		session.Theme,
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
		WHERE id = $1
	`
	var s domain.ChatSession
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.Title,
		&s.Theme,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepository) List(ctx context.Context) ([]domain.ChatSession, error) {
	query := `
		SELECT id, title, theme, created_at, updated_at
		FROM chat_sessions
		ORDER BY updated_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.ChatSession
	for rows.Next() {
		var s domain.ChatSession
		if err := rows.Scan(
			&s.ID,
			&s.Title,
			&s.Theme,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) SetTheme(ctx context.Context, id uuid.UUID, theme domain.Theme) error {
	query := `UPDATE chat_sessions SET theme = $1, updated_at = $2 WHERE id = $3`
	tag, err := r.pool.Exec(ctx, query, theme, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set theme: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a session; messages cascade via the foreign key.
func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM chat_sessions WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
