package optimizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mkoppen/linguachat/internal/inference"
	"github.com/mkoppen/linguachat/internal/language"
	"github.com/mkoppen/linguachat/internal/learner"
)

func newTransformer(backend Completer) *Transformer {
	registry := language.NewRegistry()
	return NewTransformer(backend, registry, language.NewDetector(registry), learner.New(0), zerolog.Nop())
}

func TestTransformer_Transform(t *testing.T) {
	ctx := context.Background()

	t.Run("rewrites and verifies", func(t *testing.T) {
		backend := new(MockCompleter)
		tr := newTransformer(backend)

		// First call rewrites, second call verifies.
		backend.On("Complete", ctx, mock.MatchedBy(func(req inference.Request) bool {
			return req.Temperature == 0.7 && len(req.Messages) == 2 && req.Messages[1].Content == "please summarize this document for me"
		})).Return("please provide a concise summary of this document", nil).Once()
		backend.On("Complete", ctx, mock.MatchedBy(func(req inference.Request) bool {
			return req.Temperature == 0.5
		})).Return("“please provide a concise summary of this document”", nil).Once()

		got := tr.Transform(ctx, "please summarize this document for me", "en")

		assert.Equal(t, "please provide a concise summary of this document", got)
		backend.AssertExpectations(t)
	})

	t.Run("backend failure passes original through", func(t *testing.T) {
		backend := new(MockCompleter)
		backend.On("Complete", ctx, mock.Anything).Return("", errors.New("connection refused"))
		tr := newTransformer(backend)

		got := tr.Transform(ctx, "my original prompt text here", "en")

		assert.Equal(t, "my original prompt text here", got)
	})

	t.Run("instruction carries the language profile", func(t *testing.T) {
		backend := new(MockCompleter)
		var system string
		backend.On("Complete", ctx, mock.Anything).
			Run(func(args mock.Arguments) {
				req := args.Get(1).(inference.Request)
				if system == "" {
					system = req.Messages[0].Content
				}
			}).
			Return("", errors.New("stop here"))
		tr := newTransformer(backend)

		tr.Transform(ctx, "bitte fasse dieses Dokument kurz zusammen", "de")

		assert.Contains(t, system, "Target language: German")
		assert.Contains(t, system, "DD.MM.YYYY")
		assert.Contains(t, system, "Zeit ist Geld")
		assert.Contains(t, system, "(hoch)")
		assert.Contains(t, system, "(true)")
	})

	t.Run("learned patterns are applied before dispatch", func(t *testing.T) {
		registry := language.NewRegistry()
		l := learner.New(0)
		l.Record("the cat sat on the mat", "the dog sat on the mat", 9, "en")

		backend := new(MockCompleter)
		var sent string
		backend.On("Complete", ctx, mock.Anything).
			Run(func(args mock.Arguments) {
				req := args.Get(1).(inference.Request)
				if sent == "" {
					sent = req.Messages[1].Content
				}
			}).
			Return("", errors.New("stop here"))

		tr := NewTransformer(backend, registry, language.NewDetector(registry), l, zerolog.Nop())
		tr.Transform(ctx, "tell me about the cat please", "en")

		assert.Equal(t, "tell me about the dog please", sent)
	})

	t.Run("empty target follows the detected source", func(t *testing.T) {
		backend := new(MockCompleter)
		var system string
		backend.On("Complete", ctx, mock.Anything).
			Run(func(args mock.Arguments) {
				req := args.Get(1).(inference.Request)
				if system == "" {
					system = req.Messages[0].Content
				}
			}).
			Return("", errors.New("stop here"))
		tr := newTransformer(backend)

		tr.Transform(ctx, "please write a short story about a lighthouse keeper", "")

		assert.True(t, strings.Contains(system, "Source language: English"))
		assert.True(t, strings.Contains(system, "Target language: English"))
	})
}

func TestTransformer_ProvideFeedback(t *testing.T) {
	t.Run("records and reports learner state", func(t *testing.T) {
		tr := newTransformer(new(MockCompleter))

		result := tr.ProvideFeedback("the cat sat on the mat", "the dog sat on the mat", 9, "en")

		assert.Equal(t, "en", result.Language)
		assert.True(t, result.Processed)
		assert.Equal(t, 1, result.LearnedPatterns)
		assert.Len(t, result.Suggestions, 1)
		assert.Equal(t, 9, result.Suggestions[0].Score)
	})

	t.Run("empty language is detected from the original", func(t *testing.T) {
		tr := newTransformer(new(MockCompleter))

		result := tr.ProvideFeedback("bitte schreibe mir eine kurze Geschichte über einen Leuchtturm", "bitte verfasse mir eine kurze Geschichte über einen Leuchtturm", 5, "")

		assert.Equal(t, "de", result.Language)
		assert.Equal(t, 0, result.LearnedPatterns)
	})

	t.Run("suggestions are capped", func(t *testing.T) {
		tr := newTransformer(new(MockCompleter))

		for i := 0; i < SuggestionLimit+3; i++ {
			tr.ProvideFeedback("same original", "same improved", 4, "en")
		}
		result := tr.ProvideFeedback("same original", "same improved", 4, "en")

		assert.Len(t, result.Suggestions, SuggestionLimit)
	})
}
