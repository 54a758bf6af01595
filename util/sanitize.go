package util

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// Script and style elements are removed with their content.
	scriptBlockRegex = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	styleBlockRegex  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
	// Unpaired opening or closing tags left after block removal.
	looseTagRegex = regexp.MustCompile(`(?i)</?(script|style)\b[^>]*>`)
	// javascript: URLs and inline event handlers such as onclick=.
	jsSchemeRegex     = regexp.MustCompile(`(?i)javascript\s*:`)
	eventHandlerRegex = regexp.MustCompile(`(?i)\bon\w+\s*=`)

	unsafePatternRegex = regexp.MustCompile(`(?i)(<script|</script|<style|</style|javascript\s*:|\bon\w+\s*=)`)
)

// StripUnsafe removes script and style elements, javascript: schemes and
// inline event handler attributes from s.
func StripUnsafe(s string) string {
	if !unsafePatternRegex.MatchString(s) {
		return s
	}
	s = scriptBlockRegex.ReplaceAllString(s, "")
	s = styleBlockRegex.ReplaceAllString(s, "")
	s = looseTagRegex.ReplaceAllString(s, "")
	s = jsSchemeRegex.ReplaceAllString(s, "")
	s = eventHandlerRegex.ReplaceAllString(s, "")
	return s
}

// IsSafeString reports whether s is free of the patterns StripUnsafe removes.
func IsSafeString(s string) bool {
	return !unsafePatternRegex.MatchString(s)
}

// SanitizeValue applies StripUnsafe to every string reachable from v
// through slices and string-keyed maps. Other values are returned as is.
func SanitizeValue(v any) any {
	switch t := v.(type) {
	case string:
		return StripUnsafe(t)
	case []string:
		out := make([]string, len(t))
		for i, s := range t {
			out[i] = StripUnsafe(s)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = SanitizeValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = SanitizeValue(e)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			out[k] = StripUnsafe(s)
		}
		return out
	default:
		return v
	}
}

// SanitizeString trims whitespace and removes control characters from s.
func SanitizeString(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeEnvValue cleans an environment variable value by removing surrounding
// quotes and trimming whitespace.
func SanitizeEnvValue(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = s[1 : len(s)-1]
		}
	}
	return strings.TrimSpace(s)
}
