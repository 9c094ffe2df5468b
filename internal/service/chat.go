package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mkoppen/linguachat/internal/domain"
	"github.com/mkoppen/linguachat/internal/inference"
	"github.com/mkoppen/linguachat/internal/optimizer"
	"github.com/mkoppen/linguachat/internal/relay"
)

// DefaultSessionTitle is used when a session is created without one.
const DefaultSessionTitle = "New Chat Session"

// ChatService orchestrates session persistence and the per-turn
// transform-then-relay pipeline.
type ChatService struct {
	sessionRepo domain.SessionRepository
	messageRepo domain.MessageRepository
	transformer *optimizer.Transformer
	relay       *relay.Relay
	log         zerolog.Logger
}

// NewChatService creates a new chat service
func NewChatService(
	sessionRepo domain.SessionRepository,
	messageRepo domain.MessageRepository,
	transformer *optimizer.Transformer,
	streamRelay *relay.Relay,
	log zerolog.Logger,
) *ChatService {
	return &ChatService{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		transformer: transformer,
		relay:       streamRelay,
		log:         log,
	}
}

// CreateSession creates a new session with the light theme.
func (s *ChatService) CreateSession(ctx context.Context, title string) (*domain.ChatSession, error) {
	if title == "" {
		title = DefaultSessionTitle
	}

	now := time.Now().UTC()
	session := &domain.ChatSession{
		ID:        uuid.New(),
		Title:     title,
		Theme:     domain.ThemeLight,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// ListSessions returns all sessions, most recently updated first.
func (s *ChatService) ListSessions(ctx context.Context) ([]domain.ChatSession, error) {
	return s.sessionRepo.List(ctx)
}

// GetMessages returns a session's messages in chronological order.
func (s *ChatService) GetMessages(ctx context.Context, sessionID uuid.UUID) ([]domain.Message, error) {
	return s.messageRepo.ListBySession(ctx, sessionID)
}

// SetTheme updates a session's display theme; values other than
// light/dark are rejected before the store is touched.
func (s *ChatService) SetTheme(ctx context.Context, sessionID uuid.UUID, theme domain.Theme) error {
	if theme != domain.ThemeLight && theme != domain.ThemeDark {
		return domain.ErrInvalidTheme
	}
	return s.sessionRepo.SetTheme(ctx, sessionID, theme)
}

// DeleteSession removes a session and its messages.
func (s *ChatService) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	return s.sessionRepo.Delete(ctx, sessionID)
}

// ExportSession serializes a session with its messages. Returns
// domain.ErrNotFound for an absent session.
func (s *ChatService) ExportSession(ctx context.Context, sessionID uuid.UUID) (*domain.SessionExport, error) {
	session, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	export := &domain.SessionExport{
		SessionID: session.ID,
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
		Messages:  make([]domain.ExportedMessage, 0, len(messages)),
	}
	for _, m := range messages {
		export.Messages = append(export.Messages, domain.ExportedMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return export, nil
}

// ImportSession creates a fresh session from an export envelope,
// preserving role/content order exactly.
func (s *ChatService) ImportSession(ctx context.Context, export *domain.SessionExport) (*domain.ChatSession, error) {
	for _, m := range export.Messages {
		if !m.Role.Valid() {
			return nil, fmt.Errorf("invalid message role %q", m.Role)
		}
	}

	session, err := s.CreateSession(ctx, export.Title)
	if err != nil {
		return nil, err
	}

	for _, m := range export.Messages {
		if err := s.appendMessage(ctx, session.ID, m.Role, m.Content); err != nil {
			return nil, fmt.Errorf("failed to import message: %w", err)
		}
	}
	return session, nil
}

func (s *ChatService) appendMessage(ctx context.Context, sessionID uuid.UUID, role domain.MessageRole, content string) error {
	return s.messageRepo.Append(ctx, &domain.Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
}

// StreamTurn runs one conversation turn: the original final user turn is
// persisted (when a session is given), transformed through the pipeline,
// and the augmented conversation is relayed. The transformation call
// completes before the streaming call begins.
func (s *ChatService) StreamTurn(ctx context.Context, sessionID *uuid.UUID, messages []inference.Message, targetLang string) (<-chan relay.Chunk, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("conversation is empty")
	}

	last := messages[len(messages)-1]

	if sessionID != nil {
		if err := s.appendMessage(ctx, *sessionID, domain.MessageRole(last.Role), last.Content); err != nil {
			return nil, fmt.Errorf("failed to persist user turn: %w", err)
		}
	}

	if last.Role == string(domain.RoleUser) {
		transformed := s.transformer.Transform(ctx, last.Content, targetLang)
		messages[len(messages)-1].Content = transformed
	}

	return s.relay.Relay(ctx, messages), nil
}
