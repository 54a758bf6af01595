package util

import (
	"reflect"
	"testing"
)

func TestStripUnsafe(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text untouched", "Quarterly report attached", "Quarterly report attached"},
		{"script block", `hi<script>alert('x')</script>there`, "hithere"},
		{"multiline script", "a<SCRIPT type=\"text/javascript\">\nvar x=1;\n</SCRIPT>b", "ab"},
		{"style block", `<style>body{display:none}</style>text`, "text"},
		{"loose tag", `<script src="evil.js">`, ""},
		{"javascript scheme", `<a href="javascript:alert(1)">x</a>`, `<a href="alert(1)">x</a>`},
		{"event handler", `<img src=x onerror=alert(1)>`, `<img src=x alert(1)>`},
		{"spaced handler", `<div onClick = "go()">`, `<div  "go()">`},
		{"word containing on kept", "online only", "online only"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripUnsafe(tc.input); got != tc.want {
				t.Errorf("StripUnsafe(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestIsSafeString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"safe string", "hello world", true},
		{"script tag", "<script>alert('xss')</script>", false},
		{"style tag", "<style>", false},
		{"javascript scheme", "JavaScript:alert(1)", false},
		{"event handler", "onerror=alert(1)", false},
		{"safe email", "user@example.com", true},
		{"empty string", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsSafeString(tc.input); got != tc.want {
				t.Errorf("IsSafeString(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestSanitizeValue(t *testing.T) {
	in := map[string]any{
		"subject": "<script>x()</script>Hello",
		"count":   3,
		"to":      []any{"a@example.com", "javascript:b"},
		"headers": map[string]string{"x": "<b onclick=y()>"},
		"tags":    []string{"<style>p{}</style>work"},
	}
	want := map[string]any{
		"subject": "Hello",
		"count":   3,
		"to":      []any{"a@example.com", "b"},
		"headers": map[string]string{"x": "<b y()>"},
		"tags":    []string{"work"},
	}
	if got := SanitizeValue(in); !reflect.DeepEqual(got, want) {
		t.Errorf("SanitizeValue = %#v, want %#v", got, want)
	}
	if got := SanitizeValue(42); got != 42 {
		t.Errorf("non-string value changed: %v", got)
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  mail:\x00send\n "); got != "mail:send" {
		t.Errorf("SanitizeString = %q", got)
	}
}

func TestSanitizeEnvValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"strips double quotes", `"value"`, "value"},
		{"strips single quotes", `'value'`, "value"},
		{"strips quotes and trims", `  "value"  `, "value"},
		{"mismatched quotes", `"value'`, `"value'`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeEnvValue(tc.input); got != tc.want {
				t.Errorf("SanitizeEnvValue(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
