package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Valid reports whether the role is one of the three known roles.
func (r MessageRole) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message represents a single chat message. Messages are immutable once
// created and ordered by creation time within their session.
type Message struct {
	ID        uuid.UUID   `json:"id"`
	SessionID uuid.UUID   `json:"session_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// MessageRepository defines the interface for message storage
type MessageRepository interface {
	// Append inserts a message and bumps the owning session's update
	// timestamp in the same transaction.
	Append(ctx context.Context, message *Message) error
	// ListBySession returns a session's messages in chronological order.
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]Message, error)
}
