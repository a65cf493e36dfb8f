package textutil

import (
	"strings"
	"unicode/utf8"
)

// Words splits text on any whitespace.
func Words(text string) []string {
	return strings.Fields(text)
}

// WordCount returns the number of whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// WrapLines greedily wraps text into lines of at most maxChars runes and keeps
// at most maxLines lines. When text does not fit, the last kept line ends with
// an ellipsis. A single word longer than maxChars is cut.
func WrapLines(text string, maxChars, maxLines int) []string {
	words := strings.Fields(text)
	if len(words) == 0 || maxChars <= 0 || maxLines <= 0 {
		return nil
	}

	var lines []string
	current := ""
	truncated := false
	for _, word := range words {
		if utf8.RuneCountInString(word) > maxChars {
			word = string([]rune(word)[:maxChars])
		}
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if utf8.RuneCountInString(candidate) <= maxChars {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
		if len(lines) == maxLines {
			truncated = true
			current = ""
			break
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	if truncated {
		last := []rune(lines[len(lines)-1])
		if len(last) >= maxChars {
			last = last[:maxChars-1]
		}
		lines[len(lines)-1] = strings.TrimSpace(string(last)) + "…"
	}
	return lines
}
