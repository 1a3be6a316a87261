package language_test

import (
	"testing"

	"subburn/internal/language"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"id":    "id",
		"ID":    "id",
		" en ":  "en",
		"pt-BR": "pt",
		"zh-TW": "zh",
	}
	for input, want := range cases {
		got, err := language.Normalize(input)
		if err != nil {
			t.Errorf("Normalize(%q): %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("Normalize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	for _, input := range []string{"", "   ", "not-a-language-code", "123"} {
		if _, err := language.Normalize(input); err == nil {
			t.Errorf("Normalize(%q) should fail", input)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := language.DisplayName("id"); got != "Indonesian" {
		t.Fatalf("DisplayName(id) = %q", got)
	}
	if got := language.DisplayName("pt-BR"); got != "Portuguese" {
		t.Fatalf("DisplayName(pt-BR) = %q", got)
	}
}
