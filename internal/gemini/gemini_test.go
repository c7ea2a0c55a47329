package gemini

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Djurgården vann derbyt.  ", "Djurgården vann derbyt."},
		{"\"Quoted answer.\"", "Quoted answer."},
		{"Description: Labelled answer.", "Labelled answer."},
		{"First line.\nSecond line.", "First line."},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cleanResponse(tt.in); got != tt.want {
			t.Errorf("cleanResponse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanResponseTruncates(t *testing.T) {
	got := cleanResponse(strings.Repeat("ö", 500))
	if n := utf8.RuneCountInString(got); n != maxDescribeRunes {
		t.Errorf("got %d runes, want %d", n, maxDescribeRunes)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("expected ellipsis, got %q", got[len(got)-6:])
	}
}

func TestBuildPromptLimitsText(t *testing.T) {
	prompt := buildPrompt("Title", strings.Repeat("ord ", 5000))
	if utf8.RuneCountInString(prompt) > maxPromptRunes+400 {
		t.Errorf("prompt too long: %d runes", utf8.RuneCountInString(prompt))
	}
	if !strings.Contains(prompt, "Title: Title") {
		t.Error("prompt should include the title")
	}
}
