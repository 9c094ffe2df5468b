package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mkoppen/linguachat/internal/inference"
	"github.com/mkoppen/linguachat/internal/optimizer"
)

// AnalysisService bundles the single-shot conversation analysis calls.
// Each sub-analysis is independent: one failing leaves the others in the
// combined report, matching how the analysis surface degrades.
type AnalysisService struct {
	analyzer *optimizer.Analyzer
	log      zerolog.Logger
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(analyzer *optimizer.Analyzer, log zerolog.Logger) *AnalysisService {
	return &AnalysisService{analyzer: analyzer, log: log}
}

// Visualizations groups the generated conversation visualizations.
type Visualizations struct {
	ConversationFlow  *optimizer.Visualization `json:"conversation_flow,omitempty"`
	KnowledgeGraph    *optimizer.Visualization `json:"knowledge_graph,omitempty"`
	TopicEvolution    *optimizer.Visualization `json:"topic_evolution,omitempty"`
	SentimentTimeline *optimizer.Visualization `json:"sentiment_timeline,omitempty"`
}

// Report is the combined analysis of a conversation.
type Report struct {
	Analysis          string         `json:"analysis,omitempty"`
	FollowupQuestions []string       `json:"followup_questions"`
	Summary           string         `json:"summary,omitempty"`
	Visualizations    Visualizations `json:"visualizations"`
}

// Analyze runs the full analysis suite over a conversation. Follow-up
// questions are only generated when the conversation ends with an
// assistant turn.
func (s *AnalysisService) Analyze(ctx context.Context, messages []inference.Message) *Report {
	report := &Report{FollowupQuestions: []string{}}

	if analysis, err := s.analyzer.AnalyzeContext(ctx, messages); err == nil {
		report.Analysis = analysis
	} else {
		s.log.Warn().Err(err).Msg("context analysis failed")
	}

	if len(messages) > 0 && messages[len(messages)-1].Role == "assistant" {
		if questions, err := s.analyzer.SuggestFollowups(ctx, messages[len(messages)-1].Content); err == nil {
			report.FollowupQuestions = questions
		} else {
			s.log.Warn().Err(err).Msg("followup suggestion failed")
		}
	}

	if summary, err := s.analyzer.Summarize(ctx, messages); err == nil {
		report.Summary = summary
	} else {
		s.log.Warn().Err(err).Msg("conversation summary failed")
	}

	report.Visualizations = Visualizations{
		ConversationFlow:  s.visualization(s.analyzer.ConversationFlow(ctx, messages)),
		KnowledgeGraph:    s.visualization(s.analyzer.KnowledgeGraph(ctx, messages)),
		TopicEvolution:    s.visualization(s.analyzer.TopicEvolution(ctx, messages)),
		SentimentTimeline: s.visualization(s.analyzer.SentimentTimeline(ctx, messages)),
	}
	return report
}

func (s *AnalysisService) visualization(v optimizer.Visualization, err error) *optimizer.Visualization {
	if err != nil {
		s.log.Warn().Err(err).Msg("visualization generation failed")
		return nil
	}
	return &v
}

// ConversationFlow generates the flow visualization on its own.
func (s *AnalysisService) ConversationFlow(ctx context.Context, messages []inference.Message) (optimizer.Visualization, error) {
	return s.analyzer.ConversationFlow(ctx, messages)
}

// KnowledgeGraph generates the knowledge graph on its own.
func (s *AnalysisService) KnowledgeGraph(ctx context.Context, messages []inference.Message) (optimizer.Visualization, error) {
	return s.analyzer.KnowledgeGraph(ctx, messages)
}

// TopicEvolution generates the topic timeline on its own.
func (s *AnalysisService) TopicEvolution(ctx context.Context, messages []inference.Message) (optimizer.Visualization, error) {
	return s.analyzer.TopicEvolution(ctx, messages)
}

// SentimentTimeline generates the sentiment timeline on its own.
func (s *AnalysisService) SentimentTimeline(ctx context.Context, messages []inference.Message) (optimizer.Visualization, error) {
	return s.analyzer.SentimentTimeline(ctx, messages)
}
