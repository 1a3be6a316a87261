// Package language normalizes subtitle target-language codes.
package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Normalize validates a target language code and returns its canonical base
// form ("id", "en", "pt"). Accepts BCP 47 inputs like "pt-BR" and collapses
// them to the base language the translation service expects.
func Normalize(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "", fmt.Errorf("target language is required")
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("unrecognized language %q: %w", trimmed, err)
	}
	base, _ := tag.Base()
	return base.String(), nil
}

// DisplayName returns a human-readable English name for a language code, or
// the uppercased code when unknown.
func DisplayName(code string) string {
	normalized, err := Normalize(code)
	if err != nil {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	if name := displayNames[normalized]; name != "" {
		return name
	}
	return strings.ToUpper(normalized)
}

var displayNames = map[string]string{
	"ar": "Arabic",
	"de": "German",
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"hi": "Hindi",
	"id": "Indonesian",
	"it": "Italian",
	"ja": "Japanese",
	"ko": "Korean",
	"ms": "Malay",
	"nl": "Dutch",
	"pt": "Portuguese",
	"ru": "Russian",
	"th": "Thai",
	"vi": "Vietnamese",
	"zh": "Chinese",
}
