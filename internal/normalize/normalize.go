// Package normalize post-processes raw decoded engine output into the text
// shown to the user.
package normalize

import (
	"strings"
	"unicode/utf8"
)

// terminalPunctuation are the characters a completion may legitimately end with.
const terminalPunctuation = `.!?"'`

// Normalize strips the echoed prompt from output, trims surrounding
// whitespace and ensures terminal punctuation.
//
// The composed prompt is removed wherever it occurs. When it does not occur,
// a leading copy of the original raw prompt is removed instead. An empty
// return value means there is no usable completion.
func Normalize(output, composed, original string) string {
	text := StripPrompt(output, composed, original)
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return EnsureTerminalPunctuation(text)
}

// StripPrompt removes the echoed prompt from output without trimming.
func StripPrompt(output, composed, original string) string {
	if composed != "" && strings.Contains(output, composed) {
		return strings.ReplaceAll(output, composed, "")
	}
	if original != "" {
		trimmed := strings.TrimLeft(output, " \t\r\n")
		if rest, ok := strings.CutPrefix(trimmed, original); ok {
			return rest
		}
	}
	return output
}

// EnsureTerminalPunctuation appends "." unless text already ends with one of
// . ! ? " '. Empty text is returned unchanged.
func EnsureTerminalPunctuation(text string) string {
	if text == "" {
		return text
	}
	// A truncated multi-byte sequence decodes as utf8.RuneError, which is not
	// terminal punctuation.
	last, _ := utf8.DecodeLastRuneInString(text)
	if strings.ContainsRune(terminalPunctuation, last) {
		return text
	}
	return text + "."
}
