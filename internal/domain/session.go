package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Theme is the display theme attached to a chat session.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

var (
	// ErrNotFound is returned when a session or message does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTheme is returned for theme values other than light/dark.
	ErrInvalidTheme = errors.New("invalid theme")
)

// ChatSession represents a conversation thread
type ChatSession struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Theme     Theme     `json:"theme"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionRepository defines the interface for session storage
type SessionRepository interface {
	Create(ctx context.Context, session *ChatSession) error
	Get(ctx context.Context, id uuid.UUID) (*ChatSession, error)
	// List returns all sessions ordered by most recent update first.
	List(ctx context.Context) ([]ChatSession, error)
	SetTheme(ctx context.Context, id uuid.UUID, theme Theme) error
	// Delete removes a session and all of its messages.
	Delete(ctx context.Context, id uuid.UUID) error
}
