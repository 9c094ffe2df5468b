package optimizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkoppen/linguachat/internal/inference"
)

// contextWindow is how many trailing messages context analysis sees.
const contextWindow = 5

// Analyzer provides the single-shot conversation analysis helpers. Each
// method is one independent backend call with a fixed prompt; errors are
// surfaced to the caller, which decides the user-visible behavior.
type Analyzer struct {
	backend Completer
}

// NewAnalyzer creates an analyzer over the shared backend.
func NewAnalyzer(backend Completer) *Analyzer {
	return &Analyzer{backend: backend}
}

func (a *Analyzer) complete(ctx context.Context, system, user string) (string, error) {
	return a.backend.Complete(ctx, inference.Request{
		Messages: []inference.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: analysisTemperature,
		MaxTokens:   analysisMaxTokens,
	})
}

func transcript(messages []inference.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return strings.Join(lines, "\n")
}

// AnalyzeContext reviews the recent conversation and suggests how to
// improve its quality.
func (a *Analyzer) AnalyzeContext(ctx context.Context, messages []inference.Message) (string, error) {
	recent := messages
	if len(recent) > contextWindow {
		recent = recent[len(recent)-contextWindow:]
	}
	return a.complete(ctx,
		"Analyze the conversation history and identify key topics, missing information and possible follow-up questions. Suggest how to improve the quality of the conversation.",
		fmt.Sprintf("Analyze this conversation context:\n\n%s", transcript(recent)),
	)
}

// SuggestFollowups generates follow-up questions for the last assistant
// response, one per line.
func (a *Analyzer) SuggestFollowups(ctx context.Context, lastResponse string) ([]string, error) {
	result, err := a.complete(ctx,
		"Based on the last response, generate 3-5 relevant follow-up questions that deepen the topic or address important related aspects.",
		fmt.Sprintf("Generate follow-up questions for this response: %s", lastResponse),
	)
	if err != nil {
		return nil, err
	}
	return strings.Split(result, "\n"), nil
}

// Summarize produces a concise summary of the whole conversation.
func (a *Analyzer) Summarize(ctx context.Context, messages []inference.Message) (string, error) {
	return a.complete(ctx,
		"Create a concise summary of the most important points of this conversation. Highlight core topics, key insights and open questions.",
		fmt.Sprintf("Summarize this conversation:\n\n%s", transcript(messages)),
	)
}

// Visualization is one generated conversation visualization.
type Visualization struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func (a *Analyzer) visualize(ctx context.Context, kind, system, prompt string, messages []inference.Message) (Visualization, error) {
	content, err := a.complete(ctx, system, fmt.Sprintf("%s:\n\n%s", prompt, transcript(messages)))
	if err != nil {
		return Visualization{}, err
	}
	return Visualization{Type: kind, Content: content}, nil
}

// ConversationFlow renders the conversation as a Mermaid flow diagram.
func (a *Analyzer) ConversationFlow(ctx context.Context, messages []inference.Message) (Visualization, error) {
	return a.visualize(ctx, "mermaid",
		"Analyze this conversation and generate a flow diagram in Mermaid format. Include participants, key topics, and relationships between messages.",
		"Generate flow for", messages)
}

// KnowledgeGraph renders the conversation as a Graphviz DOT graph.
func (a *Analyzer) KnowledgeGraph(ctx context.Context, messages []inference.Message) (Visualization, error) {
	return a.visualize(ctx, "graphviz",
		"Analyze this conversation and generate a knowledge graph in Graphviz DOT format. Include entities, relationships, and key concepts.",
		"Generate graph for", messages)
}

// TopicEvolution renders a timeline of conversation topics.
func (a *Analyzer) TopicEvolution(ctx context.Context, messages []inference.Message) (Visualization, error) {
	return a.visualize(ctx, "timeline",
		"Analyze this conversation and generate a timeline of topics in JSON format. Include topic names, start/end points, and importance scores.",
		"Generate timeline for", messages)
}

// SentimentTimeline renders per-message sentiment and the overall trend.
func (a *Analyzer) SentimentTimeline(ctx context.Context, messages []inference.Message) (Visualization, error) {
	return a.visualize(ctx, "sentiment",
		"Analyze this conversation and generate a sentiment timeline in JSON format. Include sentiment scores for each message and overall trend.",
		"Generate sentiment analysis for", messages)
}
