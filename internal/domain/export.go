package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExportedMessage is the role/content pair carried in an export envelope.
type ExportedMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// SessionExport is the serialized form of a session and its messages.
type SessionExport struct {
	SessionID uuid.UUID         `json:"session_id"`
	Title     string            `json:"title"`
	CreatedAt time.Time         `json:"created_at"`
	Messages  []ExportedMessage `json:"messages"`
}
