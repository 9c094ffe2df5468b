package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mkoppen/linguachat/internal/api/response"
	"github.com/mkoppen/linguachat/internal/inference"
	"github.com/mkoppen/linguachat/internal/optimizer"
	"github.com/mkoppen/linguachat/internal/service"
)

// AnalysisHandler serves the conversation analysis and visualization
// endpoints.
type AnalysisHandler struct {
	analysisService *service.AnalysisService
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(analysisService *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService}
}

type conversationRequest struct {
	Messages []inference.Message `json:"messages"`
}

func decodeConversation(w http.ResponseWriter, r *http.Request) ([]inference.Message, bool) {
	var req conversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return nil, false
	}
	return req.Messages, true
}

// Analyze runs the full analysis suite over a conversation
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	messages, ok := decodeConversation(w, r)
	if !ok {
		return
	}
	response.OK(w, h.analysisService.Analyze(r.Context(), messages))
}

func (h *AnalysisHandler) visualize(w http.ResponseWriter, r *http.Request, generate func(context.Context, []inference.Message) (optimizer.Visualization, error)) {
	messages, ok := decodeConversation(w, r)
	if !ok {
		return
	}

	viz, err := generate(r.Context(), messages)
	if err != nil {
		response.InternalError(w, "Failed to generate visualization")
		return
	}
	response.OK(w, viz)
}

// VisualizeFlow generates the conversation flow diagram
func (h *AnalysisHandler) VisualizeFlow(w http.ResponseWriter, r *http.Request) {
	h.visualize(w, r, h.analysisService.ConversationFlow)
}

// VisualizeGraph generates the knowledge graph
func (h *AnalysisHandler) VisualizeGraph(w http.ResponseWriter, r *http.Request) {
	h.visualize(w, r, h.analysisService.KnowledgeGraph)
}

// VisualizeTopics generates the topic evolution timeline
func (h *AnalysisHandler) VisualizeTopics(w http.ResponseWriter, r *http.Request) {
	h.visualize(w, r, h.analysisService.TopicEvolution)
}

// VisualizeSentiment generates the sentiment timeline
func (h *AnalysisHandler) VisualizeSentiment(w http.ResponseWriter, r *http.Request) {
	h.visualize(w, r, h.analysisService.SentimentTimeline)
}
