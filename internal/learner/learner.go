// Package learner accumulates user feedback on prompt improvements and
// derives per-language word substitution patterns from the well-rated ones.
package learner

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// PatternKind tags the kind of a learned pattern.
type PatternKind string

// KindWordSubstitution is currently the only pattern kind.
const KindWordSubstitution PatternKind = "word_substitution"

// scoreThreshold is the feedback score above which patterns are extracted.
const scoreThreshold = 7

// DefaultHistoryLimit caps the feedback log when no explicit limit is
// configured.
const DefaultHistoryLimit = 1000

// Feedback is one recorded (original, improved, score) observation.
type Feedback struct {
	Original   string    `json:"original"`
	Improved   string    `json:"improved"`
	Score      int       `json:"score"`
	Language   string    `json:"language"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Pattern is a substitution derived from a high-scoring feedback pair.
type Pattern struct {
	Kind        PatternKind `json:"type"`
	Original    string      `json:"original"`
	Replacement string      `json:"improved"`
	Context     string      `json:"context"`
}

// Learner is the process-wide feedback store. Appends and scans are
// serialized with a mutex; patterns are append-only per language.
type Learner struct {
	mu           sync.RWMutex
	history      []Feedback
	patterns     map[string][]Pattern
	historyLimit int
}

// New creates a learner. historyLimit bounds the feedback log; values
// below 1 fall back to DefaultHistoryLimit.
func New(historyLimit int) *Learner {
	if historyLimit < 1 {
		historyLimit = DefaultHistoryLimit
	}
	return &Learner{
		patterns:     make(map[string][]Pattern),
		historyLimit: historyLimit,
	}
}

// Record appends a feedback record and, when the score clears the
// extraction threshold, derives substitution patterns for the language.
// The derived patterns (possibly none) are returned.
func (l *Learner) Record(original, improved string, score int, lang string) []Pattern {
	fb := Feedback{
		Original:   original,
		Improved:   improved,
		Score:      score,
		Language:   lang,
		RecordedAt: time.Now(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.history = append(l.history, fb)
	if len(l.history) > l.historyLimit {
		l.history = l.history[len(l.history)-l.historyLimit:]
	}

	if score <= scoreThreshold {
		return nil
	}

	derived := extractPatterns(original, improved)
	if len(derived) > 0 {
		l.patterns[lang] = append(l.patterns[lang], derived...)
	}
	return derived
}

// extractPatterns compares same-index tokens of the two texts up to the
// shorter length. This is deliberately naive: reordered or resized
// sentences can produce nonsensical pairs, and that is accepted because
// later feedback observes the learner's actual behavior.
func extractPatterns(original, improved string) []Pattern {
	origWords := strings.Fields(original)
	imprWords := strings.Fields(improved)

	var patterns []Pattern
	for i := range origWords {
		if i >= len(imprWords) || origWords[i] == imprWords[i] {
			continue
		}
		lo := max(0, i-2)
		hi := min(len(origWords), i+3)
		patterns = append(patterns, Pattern{
			Kind:        KindWordSubstitution,
			Original:    origWords[i],
			Replacement: imprWords[i],
			Context:     strings.Join(origWords[lo:hi], " "),
		})
	}
	return patterns
}

// Apply runs the language's patterns over text in insertion order. Each
// substitution is a global replace, which may over-match; the result
// reflects exactly what the patterns say, not what a human would edit.
func (l *Learner) Apply(text, lang string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	improved := text
	for _, p := range l.patterns[lang] {
		if p.Kind == KindWordSubstitution {
			improved = strings.ReplaceAll(improved, p.Original, p.Replacement)
		}
	}
	return improved
}

// Suggestions returns up to n highest-scoring feedback records for the
// language, score descending with stable order among ties.
func (l *Learner) Suggestions(lang string, n int) []Feedback {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var matched []Feedback
	for _, fb := range l.history {
		if fb.Language == lang {
			matched = append(matched, fb)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Score > matched[j].Score
	})
	if len(matched) > n {
		matched = matched[:n]
	}
	return matched
}

// PatternCount returns the number of patterns learned for a language.
func (l *Learner) PatternCount(lang string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.patterns[lang])
}

// HistoryLen returns the current feedback log length.
func (l *Learner) HistoryLen() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.history)
}
