package pipeline

import (
	"regexp"
	"strings"
)

var (
	schemePattern   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)
	embedSrcPattern = regexp.MustCompile(`src=['"]([^'"]+)['"]`)
)

// resolveSource turns a submitted source string into a downloadable URL.
// Scheme-prefixed input passes through verbatim; otherwise the input is
// treated as an HTML embed snippet and the first src attribute wins. The
// raw string is the last resort, leaving the verdict to the downloader.
func resolveSource(input string) string {
	trimmed := strings.TrimSpace(input)
	if schemePattern.MatchString(trimmed) {
		return trimmed
	}
	if match := embedSrcPattern.FindStringSubmatch(trimmed); match != nil {
		return match[1]
	}
	return trimmed
}
