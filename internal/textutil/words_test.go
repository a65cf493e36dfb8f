package textutil_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"narrator/internal/textutil"
)

func TestWordCount(t *testing.T) {
	if got := textutil.WordCount("  la  rivière\tcoule\n vite "); got != 4 {
		t.Fatalf("expected 4 words, got %d", got)
	}
	if got := textutil.WordCount(""); got != 0 {
		t.Fatalf("expected 0 words, got %d", got)
	}
}

func TestWrapLinesFitsWithinLimits(t *testing.T) {
	lines := textutil.WrapLines("LES SECRETS DES PYRAMIDES", 28, 2)
	if len(lines) != 1 || lines[0] != "LES SECRETS DES PYRAMIDES" {
		t.Fatalf("unexpected wrap: %q", lines)
	}

	lines = textutil.WrapLines("the quick brown fox jumps over the lazy dog", 15, 2)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", lines)
	}
	for _, line := range lines {
		if utf8.RuneCountInString(line) > 15 {
			t.Fatalf("line too long: %q", line)
		}
	}
	if !strings.HasSuffix(lines[1], "…") {
		t.Fatalf("expected ellipsis on truncated text, got %q", lines[1])
	}
}

func TestWrapLinesCutsLongWords(t *testing.T) {
	lines := textutil.WrapLines("anticonstitutionnellement", 10, 2)
	if len(lines) != 1 || utf8.RuneCountInString(lines[0]) != 10 {
		t.Fatalf("unexpected wrap: %q", lines)
	}
}

func TestSanitizeToken(t *testing.T) {
	cases := map[string]string{
		"Cinématique":  "cinématique",
		"  dark/epic ": "dark_epic",
		"":             "unknown",
		"***":          "unknown",
	}
	for in, want := range cases {
		if got := textutil.SanitizeToken(in); got != want {
			t.Fatalf("SanitizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}
