package optimizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mkoppen/linguachat/internal/inference"
	"github.com/mkoppen/linguachat/internal/language"
)

const verifyInstruction = `You are a multilingual AI assistant specializing in prompt verification.

Target language: {target_lang}
Formatting rules: {formatting_rules}

<language>
{target_lang}
</language>

Instructions:
1. Verify the improved prompt maintains the original intent
2. Check for language-specific formatting and cultural appropriateness
3. Ensure proper use of quotation marks and other language-specific elements
4. Return the verified prompt using the correct quotation marks for the target language
5. Do not add any explanations or metadata

Example format:
{quote_start}Verified prompt text goes here{quote_end}

Verification criteria:
- Language-specific correctness
- Cultural appropriateness
- Proper formatting
- Clear objectives

IMPORTANT: Return only the verified text using the language-specific quotation marks.`

// Verifier re-dispatches a transformed prompt for verification and
// extracts the quoted payload from the response. Like the transformer it
// never fails: every error path falls back to simple quote-substitution
// formatting of the improved text.
type Verifier struct {
	backend  Completer
	registry *language.Registry
	detector *language.Detector
	log      zerolog.Logger
}

// NewVerifier creates a verifier over the shared backend and language
// capabilities.
func NewVerifier(backend Completer, registry *language.Registry, detector *language.Detector, log zerolog.Logger) *Verifier {
	return &Verifier{
		backend:  backend,
		registry: registry,
		detector: detector,
		log:      log,
	}
}

// Verify asks the backend to confirm improved against original and
// returns the text found between the target language's quotation marks.
// Missing or malformed markers, and any backend failure, yield the
// quote-formatted improved text instead — never the raw response.
func (v *Verifier) Verify(ctx context.Context, improved, original, targetLang string) string {
	target := targetLang
	if target == "" {
		target = v.detector.Detect(improved)
	}

	rules := v.registry.Formatting(target)
	quotes := rules.Quotes

	replacer := strings.NewReplacer(
		"{target_lang}", v.registry.DisplayName(target),
		"{formatting_rules}", marshalIndent(rules),
		"{quote_start}", quotes.Open,
		"{quote_end}", quotes.Close,
	)
	system := replacer.Replace(verifyInstruction)

	result, err := v.backend.Complete(ctx, inference.Request{
		Messages: []inference.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: fmt.Sprintf("Original:\n%s\n\nImproved:\n%s", original, improved)},
		},
		Temperature: verifyTemperature,
		MaxTokens:   pipelineMaxTokens,
	})
	if err != nil {
		v.log.Warn().Err(err).Str("target", target).Msg("prompt verification failed, formatting improved text")
		return v.registry.FormatQuotes(improved, target)
	}

	if extracted, ok := extractQuoted(result, quotes); ok {
		return extracted
	}
	return v.registry.FormatQuotes(improved, target)
}

// extractQuoted returns the substring between the first opening marker
// and the last closing marker, requiring the close to fall strictly
// after the open.
func extractQuoted(text string, quotes language.QuotePair) (string, bool) {
	if quotes.IsZero() {
		return "", false
	}

	open := strings.Index(text, quotes.Open)
	if open < 0 {
		return "", false
	}
	start := open + len(quotes.Open)

	end := strings.LastIndex(text, quotes.Close)
	if end <= start {
		return "", false
	}
	return text[start:end], true
}
