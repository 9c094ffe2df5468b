package language

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// Detector guesses the language of a text, always answering with a code
// the registry supports.
type Detector struct {
	registry *Registry
}

// NewDetector creates a detector bound to a registry.
func NewDetector(registry *Registry) *Detector {
	return &Detector{registry: registry}
}

// Detect returns the best-guess ISO 639-1 code for text. Detection is
// approximate; when it fails or yields a language without a profile the
// fallback code is returned, so callers always receive a supported code.
func (d *Detector) Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return FallbackCode
	}

	info := whatlanggo.Detect(text)
	code := whatlanggo.LangToStringShort(info.Lang)
	if code == "" || !d.registry.Supported(code) {
		return FallbackCode
	}
	return code
}
