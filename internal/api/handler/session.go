package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mkoppen/linguachat/internal/api/response"
	"github.com/mkoppen/linguachat/internal/domain"
	"github.com/mkoppen/linguachat/internal/service"
)

// SessionHandler serves the session CRUD and export/import surface.
type SessionHandler struct {
	chatService *service.ChatService
	validate    *validator.Validate
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(chatService *service.ChatService) *SessionHandler {
	return &SessionHandler{
		chatService: chatService,
		validate:    validator.New(),
	}
}

// List returns all sessions ordered by recency
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.chatService.ListSessions(r.Context())
	if err != nil {
		response.InternalError(w, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []domain.ChatSession{}
	}
	response.OK(w, sessions)
}

// Create creates a new session
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	// The body is optional; an absent or empty title gets the default.
	_ = json.NewDecoder(r.Body).Decode(&req)

	session, err := h.chatService.CreateSession(r.Context(), req.Title)
	if err != nil {
		response.InternalError(w, "Failed to create session")
		return
	}
	response.Created(w, session)
}

// Delete deletes a session and its messages
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	if err := h.chatService.DeleteSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "Session not found")
			return
		}
		response.InternalError(w, "Failed to delete session")
		return
	}
	response.OK(w, map[string]string{"message": "Session deleted"})
}

// GetMessages returns the messages of a session in order
func (h *SessionHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	messages, err := h.chatService.GetMessages(r.Context(), sessionID)
	if err != nil {
		response.InternalError(w, "Failed to fetch messages")
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	response.OK(w, messages)
}

type themeRequest struct {
	Theme string `json:"theme" validate:"required,oneof=light dark"`
}

// SetTheme updates a session's display theme
func (h *SessionHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	var req themeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, "Invalid theme")
		return
	}

	if err := h.chatService.SetTheme(r.Context(), sessionID, domain.Theme(req.Theme)); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidTheme):
			response.BadRequest(w, "Invalid theme")
		case errors.Is(err, domain.ErrNotFound):
			response.NotFound(w, "Session not found")
		default:
			response.InternalError(w, "Failed to update theme")
		}
		return
	}
	response.OK(w, map[string]bool{"success": true})
}

// Export returns the session as a downloadable JSON document
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	export, err := h.chatService.ExportSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "Session not found")
			return
		}
		response.InternalError(w, "Export failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=chat_export_%s.json", sessionID))
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(export)
}

// Import creates a fresh session from an export envelope
func (h *SessionHandler) Import(w http.ResponseWriter, r *http.Request) {
	var export domain.SessionExport
	if err := json.NewDecoder(r.Body).Decode(&export); err != nil {
		response.BadRequest(w, "Invalid export document")
		return
	}

	session, err := h.chatService.ImportSession(r.Context(), &export)
	if err != nil {
		response.BadRequest(w, "Import failed")
		return
	}
	response.Created(w, session)
}

func sessionIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "Invalid session ID")
		return uuid.Nil, false
	}
	return sessionID, true
}
