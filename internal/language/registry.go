package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// QuotePair holds the paired quotation marks of a language.
type QuotePair struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// IsZero reports whether no quote pair is configured.
func (q QuotePair) IsZero() bool {
	return q.Open == "" && q.Close == ""
}

// FormattingRules are the language-specific text formatting conventions.
type FormattingRules struct {
	DatePattern string    `json:"date"`
	Quotes      QuotePair `json:"quotes"`
}

// CulturalContext carries the cultural metadata used to steer
// transformation instructions.
type CulturalContext struct {
	FormalAddress bool              `json:"formal_address"`
	Idioms        map[string]string `json:"idioms,omitempty"`
	Norms         map[string]string `json:"cultural_norms,omitempty"`
}

// Formality returns the qualitative formality norm, defaulting to "standard".
func (c CulturalContext) Formality() string {
	if v, ok := c.Norms["formality"]; ok {
		return v
	}
	return "standard"
}

// Profile describes one supported language.
type Profile struct {
	Code       string
	Name       string
	Formatting FormattingRules
	Culture    CulturalContext
}

// FallbackCode is used whenever detection fails or yields an
// unsupported language.
const FallbackCode = "en"

// Registry is the static table of supported language profiles. It is
// populated at construction and read-only afterwards.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry returns a registry with the built-in profiles.
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[string]Profile)}
	for _, p := range builtinProfiles() {
		r.profiles[p.Code] = p
	}
	return r
}

func builtinProfiles() []Profile {
	return []Profile{
		{
			Code: "de",
			Name: "Deutsch",
			Formatting: FormattingRules{
				DatePattern: "DD.MM.YYYY",
				Quotes:      QuotePair{Open: "„", Close: "“"}, // „ “
			},
			Culture: CulturalContext{
				FormalAddress: true,
				Idioms: map[string]string{
					"time_is_money":          "Zeit ist Geld",
					"better_safe_than_sorry": "Vorsicht ist besser als Nachsicht",
				},
				Norms: map[string]string{
					"punctuality": "sehr wichtig",
					"directness":  "bevorzugt",
					"formality":   "hoch",
				},
			},
		},
		{
			Code: "en",
			Name: "English",
			Formatting: FormattingRules{
				DatePattern: "YYYY-MM-DD",
				Quotes:      QuotePair{Open: "“", Close: "”"}, // “ ”
			},
			Culture: CulturalContext{
				FormalAddress: false,
				Idioms: map[string]string{
					"time_is_money":          "time is money",
					"better_safe_than_sorry": "better safe than sorry",
				},
				Norms: map[string]string{
					"punctuality": "important",
					"directness":  "moderate",
					"formality":   "context-dependent",
				},
			},
		},
		{
			Code: "fr",
			Name: "Français",
			Formatting: FormattingRules{
				DatePattern: "DD/MM/YYYY",
				Quotes:      QuotePair{Open: "«", Close: "»"}, // « »
			},
		},
		{
			Code: "es",
			Name: "Español",
			Formatting: FormattingRules{
				DatePattern: "DD/MM/YYYY",
				Quotes:      QuotePair{Open: "«", Close: "»"},
			},
		},
		{
			Code: "it",
			Name: "Italiano",
			Formatting: FormattingRules{
				DatePattern: "DD/MM/YYYY",
				Quotes:      QuotePair{Open: "«", Close: "»"},
			},
		},
	}
}

// Supported reports whether the code has a profile.
func (r *Registry) Supported(code string) bool {
	_, ok := r.profiles[code]
	return ok
}

// Codes returns the supported language codes.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.profiles))
	for c := range r.profiles {
		codes = append(codes, c)
	}
	return codes
}

// DisplayName resolves the full English display name of a language code.
// Unknown-but-parseable tags resolve through x/text; otherwise the
// profile's short name is used, and as a last resort the fallback
// language's name.
func (r *Registry) DisplayName(code string) string {
	if tag, err := language.Parse(code); err == nil {
		if name := display.English.Languages().Name(tag); name != "" && !strings.EqualFold(name, "unknown language") {
			return name
		}
	}
	if p, ok := r.profiles[code]; ok {
		return p.Name
	}
	return r.profiles[FallbackCode].Name
}

// Formatting returns the formatting rules for a code, zero-valued when
// the code is unknown.
func (r *Registry) Formatting(code string) FormattingRules {
	return r.profiles[code].Formatting
}

// Culture returns the cultural context record for a code, empty when
// unknown or not configured.
func (r *Registry) Culture(code string) CulturalContext {
	return r.profiles[code].Culture
}

// FormatQuotes replaces the first straight double-quote pair in text with
// the language's paired quotation marks. Text without straight quotes, or
// a language without a configured pair, passes through unchanged.
func (r *Registry) FormatQuotes(text, code string) string {
	quotes := r.profiles[code].Formatting.Quotes
	if quotes.IsZero() || !strings.Contains(text, `"`) {
		return text
	}
	text = strings.Replace(text, `"`, quotes.Open, 1)
	text = strings.Replace(text, `"`, quotes.Close, 1)
	return text
}
