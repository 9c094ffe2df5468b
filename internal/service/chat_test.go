package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mkoppen/linguachat/internal/domain"
	"github.com/mkoppen/linguachat/internal/inference"
	"github.com/mkoppen/linguachat/internal/language"
	"github.com/mkoppen/linguachat/internal/learner"
	"github.com/mkoppen/linguachat/internal/optimizer"
	"github.com/mkoppen/linguachat/internal/relay"
)

// fakeBackend serves both call shapes of the inference surface: blocking
// calls answer with a fixed completion (or fail), streaming calls emit
// the configured deltas. Streamed requests are recorded for inspection.
type fakeBackend struct {
	mu             sync.Mutex
	completion     string
	failCompletion bool
	deltas         []string
	streamed       []inference.Request
}

func (f *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	var req inference.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if req.Stream {
		f.mu.Lock()
		f.streamed = append(f.streamed, req)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range f.deltas {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", d)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		return
	}

	if f.failCompletion {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}]}`, f.completion)
}

func (f *fakeBackend) lastStreamed(t *testing.T) inference.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.streamed)
	return f.streamed[len(f.streamed)-1]
}

func newTestService(t *testing.T, backend *fakeBackend, sessionRepo domain.SessionRepository, messageRepo domain.MessageRepository) *ChatService {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(backend.serve))
	t.Cleanup(server.Close)

	client := inference.NewClient(server.URL, 0)
	registry := language.NewRegistry()
	transformer := optimizer.NewTransformer(client, registry, language.NewDetector(registry), learner.New(0), zerolog.Nop())

	return NewChatService(sessionRepo, messageRepo, transformer, relay.New(client, zerolog.Nop()), zerolog.Nop())
}

func drainChunks(t *testing.T, chunks <-chan relay.Chunk) []relay.Chunk {
	t.Helper()
	var got []relay.Chunk
	deadline := time.After(5 * time.Second)
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return got
			}
			got = append(got, chunk)
		case <-deadline:
			t.Fatal("timed out draining chunks")
		}
	}
}

func TestChatService_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		sessionRepo := new(MockSessionRepository)
		sessionRepo.On("Create", ctx, mock.AnythingOfType("*domain.ChatSession")).Return(nil)
		svc := NewChatService(sessionRepo, nil, nil, nil, zerolog.Nop())

		session, err := svc.CreateSession(ctx, "Test Chat")

		require.NoError(t, err)
		assert.Equal(t, "Test Chat", session.Title)
		assert.Equal(t, domain.ThemeLight, session.Theme)
		assert.NotEqual(t, uuid.Nil, session.ID)
		sessionRepo.AssertExpectations(t)
	})

	t.Run("default title", func(t *testing.T) {
		sessionRepo := new(MockSessionRepository)
		sessionRepo.On("Create", ctx, mock.AnythingOfType("*domain.ChatSession")).Return(nil)
		svc := NewChatService(sessionRepo, nil, nil, nil, zerolog.Nop())

		session, err := svc.CreateSession(ctx, "")

		require.NoError(t, err)
		assert.Equal(t, DefaultSessionTitle, session.Title)
	})
}

func TestChatService_SetTheme(t *testing.T) {
	ctx := context.Background()
	sessionID := uuid.New()

	t.Run("valid theme is stored", func(t *testing.T) {
		sessionRepo := new(MockSessionRepository)
		sessionRepo.On("SetTheme", ctx, sessionID, domain.ThemeDark).Return(nil)
		svc := NewChatService(sessionRepo, nil, nil, nil, zerolog.Nop())

		require.NoError(t, svc.SetTheme(ctx, sessionID, domain.ThemeDark))
		sessionRepo.AssertExpectations(t)
	})

	t.Run("invalid theme never reaches the store", func(t *testing.T) {
		sessionRepo := new(MockSessionRepository)
		svc := NewChatService(sessionRepo, nil, nil, nil, zerolog.Nop())

		err := svc.SetTheme(ctx, sessionID, domain.Theme("neon"))

		assert.ErrorIs(t, err, domain.ErrInvalidTheme)
		sessionRepo.AssertNotCalled(t, "SetTheme", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestChatService_ExportSession(t *testing.T) {
	ctx := context.Background()
	sessionID := uuid.New()

	t.Run("envelope carries session and messages", func(t *testing.T) {
		created := time.Now().UTC().Truncate(time.Second)
		sessionRepo := new(MockSessionRepository)
		sessionRepo.On("Get", ctx, sessionID).Return(&domain.ChatSession{
			ID:        sessionID,
			Title:     "exported",
			Theme:     domain.ThemeLight,
			CreatedAt: created,
		}, nil)

		messageRepo := new(MockMessageRepository)
		messageRepo.On("ListBySession", ctx, sessionID).Return([]domain.Message{
			{Role: domain.RoleUser, Content: "question"},
			{Role: domain.RoleAssistant, Content: "answer"},
		}, nil)

		svc := NewChatService(sessionRepo, messageRepo, nil, nil, zerolog.Nop())

		export, err := svc.ExportSession(ctx, sessionID)

		require.NoError(t, err)
		assert.Equal(t, sessionID, export.SessionID)
		assert.Equal(t, "exported", export.Title)
		assert.Equal(t, created, export.CreatedAt)
		require.Len(t, export.Messages, 2)
		assert.Equal(t, domain.ExportedMessage{Role: domain.RoleUser, Content: "question"}, export.Messages[0])
		assert.Equal(t, domain.ExportedMessage{Role: domain.RoleAssistant, Content: "answer"}, export.Messages[1])
	})

	t.Run("missing session propagates ErrNotFound", func(t *testing.T) {
		sessionRepo := new(MockSessionRepository)
		sessionRepo.On("Get", ctx, sessionID).Return(nil, domain.ErrNotFound)
		svc := NewChatService(sessionRepo, nil, nil, nil, zerolog.Nop())

		_, err := svc.ExportSession(ctx, sessionID)

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestChatService_ImportSession(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip restores order", func(t *testing.T) {
		sessionRepo := new(MockSessionRepository)
		sessionRepo.On("Create", ctx, mock.AnythingOfType("*domain.ChatSession")).Return(nil)

		var appended []domain.Message
		messageRepo := new(MockMessageRepository)
		messageRepo.On("Append", ctx, mock.AnythingOfType("*domain.Message")).
			Run(func(args mock.Arguments) {
				appended = append(appended, *args.Get(1).(*domain.Message))
			}).
			Return(nil)

		svc := NewChatService(sessionRepo, messageRepo, nil, nil, zerolog.Nop())

		export := &domain.SessionExport{
			Title: "restored",
			Messages: []domain.ExportedMessage{
				{Role: domain.RoleUser, Content: "question"},
				{Role: domain.RoleAssistant, Content: "answer"},
			},
		}

		session, err := svc.ImportSession(ctx, export)

		require.NoError(t, err)
		assert.Equal(t, "restored", session.Title)
		require.Len(t, appended, 2)
		assert.Equal(t, "question", appended[0].Content)
		assert.Equal(t, "answer", appended[1].Content)
		for _, m := range appended {
			assert.Equal(t, session.ID, m.SessionID)
		}
	})

	t.Run("invalid role is rejected before any write", func(t *testing.T) {
		sessionRepo := new(MockSessionRepository)
		svc := NewChatService(sessionRepo, nil, nil, nil, zerolog.Nop())

		_, err := svc.ImportSession(ctx, &domain.SessionExport{
			Messages: []domain.ExportedMessage{{Role: "narrator", Content: "x"}},
		})

		assert.Error(t, err)
		sessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestChatService_StreamTurn(t *testing.T) {
	ctx := context.Background()

	t.Run("relays backend deltas", func(t *testing.T) {
		// Blocking calls fail, so the pipeline degrades to relaying the
		// original prompt untouched.
		backend := &fakeBackend{failCompletion: true, deltas: []string{"Hel", "lo"}}
		svc := newTestService(t, backend, nil, nil)

		chunks, err := svc.StreamTurn(ctx, nil, []inference.Message{{Role: "user", Content: "tell me a story"}}, "en")
		require.NoError(t, err)

		got := drainChunks(t, chunks)
		require.Len(t, got, 2)
		assert.Equal(t, "Hel", got[0].Content)
		assert.Equal(t, "lo", got[1].Content)

		relayed := backend.lastStreamed(t)
		require.Len(t, relayed.Messages, 1)
		assert.Equal(t, "tell me a story", relayed.Messages[0].Content)
	})

	t.Run("transformed turn replaces the relayed content", func(t *testing.T) {
		// Blocking calls answer with a marked-up completion; the verifier
		// extracts the quoted payload before the relay runs.
		backend := &fakeBackend{completion: "“an improved story request”", deltas: []string{"ok"}}
		svc := newTestService(t, backend, nil, nil)

		chunks, err := svc.StreamTurn(ctx, nil, []inference.Message{{Role: "user", Content: "tell me a story"}}, "en")
		require.NoError(t, err)
		drainChunks(t, chunks)

		relayed := backend.lastStreamed(t)
		require.Len(t, relayed.Messages, 1)
		assert.Equal(t, "an improved story request", relayed.Messages[0].Content)
	})

	t.Run("user turn is persisted with its original content", func(t *testing.T) {
		backend := &fakeBackend{failCompletion: true, deltas: []string{"x"}}
		sessionID := uuid.New()

		var persisted *domain.Message
		messageRepo := new(MockMessageRepository)
		messageRepo.On("Append", ctx, mock.AnythingOfType("*domain.Message")).
			Run(func(args mock.Arguments) {
				persisted = args.Get(1).(*domain.Message)
			}).
			Return(nil)

		svc := newTestService(t, backend, nil, messageRepo)

		chunks, err := svc.StreamTurn(ctx, &sessionID, []inference.Message{{Role: "user", Content: "original words"}}, "en")
		require.NoError(t, err)
		drainChunks(t, chunks)

		require.NotNil(t, persisted)
		assert.Equal(t, sessionID, persisted.SessionID)
		assert.Equal(t, domain.RoleUser, persisted.Role)
		assert.Equal(t, "original words", persisted.Content)
	})

	t.Run("assistant final turn is not transformed", func(t *testing.T) {
		backend := &fakeBackend{completion: "“should never appear”", deltas: []string{"x"}}
		svc := newTestService(t, backend, nil, nil)

		chunks, err := svc.StreamTurn(ctx, nil, []inference.Message{
			{Role: "user", Content: "question"},
			{Role: "assistant", Content: "previous answer"},
		}, "en")
		require.NoError(t, err)
		drainChunks(t, chunks)

		relayed := backend.lastStreamed(t)
		require.Len(t, relayed.Messages, 2)
		assert.Equal(t, "previous answer", relayed.Messages[1].Content)
	})

	t.Run("empty conversation is rejected", func(t *testing.T) {
		backend := &fakeBackend{}
		svc := newTestService(t, backend, nil, nil)

		_, err := svc.StreamTurn(ctx, nil, nil, "en")

		assert.Error(t, err)
	})

	t.Run("failed persist aborts the turn", func(t *testing.T) {
		backend := &fakeBackend{}
		sessionID := uuid.New()

		messageRepo := new(MockMessageRepository)
		messageRepo.On("Append", ctx, mock.Anything).Return(domain.ErrNotFound)

		svc := newTestService(t, backend, nil, messageRepo)

		_, err := svc.StreamTurn(ctx, &sessionID, []inference.Message{{Role: "user", Content: "hi"}}, "en")

		assert.Error(t, err)
	})
}
