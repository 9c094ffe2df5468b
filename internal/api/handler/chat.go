package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mkoppen/linguachat/internal/api/response"
	"github.com/mkoppen/linguachat/internal/inference"
	"github.com/mkoppen/linguachat/internal/service"
)

// ChatHandler serves the streaming chat endpoint.
type ChatHandler struct {
	chatService *service.ChatService
	log         zerolog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, log: log}
}

type chatStreamRequest struct {
	SessionID      *uuid.UUID          `json:"session_id,omitempty"`
	Messages       []inference.Message `json:"messages"`
	TargetLanguage string              `json:"target_language,omitempty"`
}

type streamEvent struct {
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Stream relays the backend's token output to the caller as
// server-sent events, one data frame per content delta. A failed stream
// carries exactly one error frame and then ends.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	var req chatStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		response.BadRequest(w, "Conversation is empty")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalError(w, "Streaming unsupported")
		return
	}

	chunks, err := h.chatService.StreamTurn(r.Context(), req.SessionID, req.Messages, req.TargetLanguage)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to start stream")
		response.InternalError(w, "Failed to start stream")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for chunk := range chunks {
		if chunk.Err != nil {
			writeEvent(w, flusher, streamEvent{Error: chunk.Err.Error()})
			return
		}
		writeEvent(w, flusher, streamEvent{Content: chunk.Content})
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, event streamEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
