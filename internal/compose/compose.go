// Package compose builds the final input string sent to the generation engine
// from the raw user prompt and the selected writing style.
package compose

import (
	"fmt"

	"github.com/BTreeMap/MagicText/internal/models"
	"github.com/BTreeMap/MagicText/internal/style"
)

// CompletionCue terminates an instructional prompt.
const CompletionCue = "\n\nCompletion:"

// Compose returns the composed prompt for raw and s under mode. It never fails:
// unrecognized styles fall back to a generic instruction (instructional mode)
// or to the bare prompt (inline mode). The raw prompt is embedded verbatim.
func Compose(raw string, s models.Style, mode models.CompositionMode) string {
	switch mode {
	case models.ModeInline:
		return composeInline(raw, s)
	default:
		return composeInstructional(raw, s)
	}
}

func composeInstructional(raw string, s models.Style) string {
	return fmt.Sprintf("%s %s%s", style.Instruction(s), raw, CompletionCue)
}

func composeInline(raw string, s models.Style) string {
	if s == models.StyleNone || !s.IsKnown() {
		return raw
	}
	return fmt.Sprintf("Write in a %s style: %s", s, raw)
}
