package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mkoppen/linguachat/internal/inference"
	"github.com/mkoppen/linguachat/internal/language"
	"github.com/mkoppen/linguachat/internal/learner"
)

const transformInstruction = `You are a multilingual AI assistant capable of understanding and communicating in various languages.

Source language: {source_lang}
Target language: {target_lang}

<language>
{target_lang}
</language>

<formatting_rules>
{formatting_rules}
</formatting_rules>

<cultural_context>
{cultural_context}
</cultural_context>

<user_input>
{user_prompt}
</user_input>

Instructions:
1. Analyze the input in the source language
2. Consider cultural context and norms
3. Apply language-specific patterns and improvements
4. Maintain cultural appropriateness
5. Return optimized prompt in target language

Remember to:
- Use appropriate formality level ({formality})
- Apply cultural-specific idioms when appropriate
- Maintain original intent while being culturally sensitive
- Use language-specific structures and expressions
- Consider formal/informal address ({formal_address})`

// Transformer rewrites a prompt for its target language: detect, apply
// learned patterns, dispatch a rewriting call, then hand the result to
// the verifier. It never fails — every error path degrades to returning
// the original prompt untouched.
type Transformer struct {
	backend  Completer
	registry *language.Registry
	detector *language.Detector
	learner  *learner.Learner
	verifier *Verifier
	log      zerolog.Logger
}

// NewTransformer wires the pipeline. The verifier shares the same
// backend, registry and detector.
func NewTransformer(backend Completer, registry *language.Registry, detector *language.Detector, l *learner.Learner, log zerolog.Logger) *Transformer {
	return &Transformer{
		backend:  backend,
		registry: registry,
		detector: detector,
		learner:  l,
		verifier: NewVerifier(backend, registry, detector, log),
		log:      log,
	}
}

// Verifier exposes the composed verifier, mainly for the standalone
// improve-prompt surface.
func (t *Transformer) Verifier() *Verifier {
	return t.verifier
}

// Transform rewrites prompt toward targetLang (empty means "same as
// detected source"). On any backend failure the original prompt comes
// back unchanged; the caller cannot observe the failure.
func (t *Transformer) Transform(ctx context.Context, prompt, targetLang string) string {
	source := t.detector.Detect(prompt)
	target := targetLang
	if target == "" {
		target = source
	}

	culture := t.registry.Culture(target)
	preprocessed := t.learner.Apply(prompt, target)

	system := t.buildInstruction(source, target, culture, preprocessed)

	improved, err := t.backend.Complete(ctx, inference.Request{
		Messages: []inference.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: preprocessed},
		},
		Temperature: transformTemperature,
		MaxTokens:   pipelineMaxTokens,
	})
	if err != nil {
		t.log.Warn().Err(err).Str("target", target).Msg("prompt transformation failed, passing original through")
		return prompt
	}

	// The verifier re-detects the target from the improved text, as the
	// rewriting step may have changed the language.
	return t.verifier.Verify(ctx, improved, prompt, "")
}

func (t *Transformer) buildInstruction(source, target string, culture language.CulturalContext, preprocessed string) string {
	rules := t.registry.Formatting(target)

	replacer := strings.NewReplacer(
		"{source_lang}", t.registry.DisplayName(source),
		"{target_lang}", t.registry.DisplayName(target),
		"{formatting_rules}", marshalIndent(rules),
		"{cultural_context}", marshalIndent(culture),
		"{formality}", culture.Formality(),
		"{formal_address}", fmt.Sprintf("%t", culture.FormalAddress),
		"{user_prompt}", preprocessed,
	)
	return replacer.Replace(transformInstruction)
}

func marshalIndent(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// FeedbackResult summarizes learner state after recording feedback.
type FeedbackResult struct {
	Language        string                   `json:"language"`
	Processed       bool                     `json:"feedback_processed"`
	Suggestions     []learner.Feedback       `json:"improvement_suggestions"`
	LearnedPatterns int                      `json:"learned_patterns"`
	CulturalContext language.CulturalContext `json:"cultural_context"`
}

// SuggestionLimit is the number of top feedback records returned with a
// feedback response.
const SuggestionLimit = 5

// ProvideFeedback records user feedback on an improvement and returns
// the language's updated learning state. An empty language is resolved by
// detecting the original text.
func (t *Transformer) ProvideFeedback(original, improved string, score int, lang string) FeedbackResult {
	if lang == "" {
		lang = t.detector.Detect(original)
	}

	t.learner.Record(original, improved, score, lang)

	return FeedbackResult{
		Language:        lang,
		Processed:       true,
		Suggestions:     t.learner.Suggestions(lang, SuggestionLimit),
		LearnedPatterns: t.learner.PatternCount(lang),
		CulturalContext: t.registry.Culture(lang),
	}
}
