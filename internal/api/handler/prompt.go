package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/mkoppen/linguachat/internal/api/response"
	"github.com/mkoppen/linguachat/internal/optimizer"
)

// PromptHandler serves the standalone prompt improvement and feedback
// endpoints.
type PromptHandler struct {
	transformer *optimizer.Transformer
	validate    *validator.Validate
}

// NewPromptHandler creates a new prompt handler
func NewPromptHandler(transformer *optimizer.Transformer) *PromptHandler {
	return &PromptHandler{
		transformer: transformer,
		validate:    validator.New(),
	}
}

type improveRequest struct {
	Prompt         string `json:"prompt" validate:"required"`
	TargetLanguage string `json:"target_language,omitempty"`
}

// Improve runs a prompt through the transformation pipeline without
// relaying anything.
func (h *PromptHandler) Improve(w http.ResponseWriter, r *http.Request) {
	var req improveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, "No prompt given")
		return
	}

	improved := h.transformer.Transform(r.Context(), req.Prompt, req.TargetLanguage)
	response.OK(w, map[string]string{"improved_prompt": improved})
}

type feedbackRequest struct {
	Original string `json:"original" validate:"required"`
	Improved string `json:"improved" validate:"required"`
	Score    int    `json:"score" validate:"min=0,max=10"`
	Language string `json:"language,omitempty"`
}

// Feedback records user feedback on an improvement and returns the
// learner's state for the language.
func (h *PromptHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, "Invalid feedback")
		return
	}

	result := h.transformer.ProvideFeedback(req.Original, req.Improved, req.Score, req.Language)
	response.OK(w, result)
}
