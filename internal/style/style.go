// Package style provides the fixed style catalog used to compose prompts and
// the list of prompt suggestions offered by the presentation layer.
package style

import (
	"math/rand/v2"

	"github.com/BTreeMap/MagicText/internal/models"
)

// ---- Catalog ----

// DefaultInstruction is used for StyleNone and for any unrecognized style.
const DefaultInstruction = "Write a completion of:"

// instructions is the process-wide, read-only style catalog.
var instructions = map[models.Style]string{
	models.StyleCreative:  "Write a creative and imaginative continuation that completes the thought:",
	models.StyleFormal:    "Write a formal and well-structured completion of:",
	models.StyleHumorous:  "Write a funny and entertaining completion of:",
	models.StylePoetic:    "Write a poetic and lyrical completion of:",
	models.StyleTechnical: "Write a precise and technical completion of:",
}

// Instruction returns the instruction phrase for s, falling back to
// DefaultInstruction when s has no entry.
func Instruction(s models.Style) string {
	if phrase, ok := instructions[s]; ok {
		return phrase
	}
	return DefaultInstruction
}

// Entry is one row of the catalog as exposed to clients.
type Entry struct {
	Style       models.Style `json:"style"`
	Instruction string       `json:"instruction"`
}

// Catalog returns every enumerated style with its instruction, in presentation order.
func Catalog() []Entry {
	entries := make([]Entry, 0, len(models.AllStyles))
	for _, s := range models.AllStyles {
		entries = append(entries, Entry{Style: s, Instruction: Instruction(s)})
	}
	return entries
}

// ---- Suggestions ----

// DefaultPrompt pre-fills the prompt box before the user types anything.
const DefaultPrompt = "The future of artificial intelligence"

// Suggestions are creative prompt seeds for the "random prompt" helper.
var Suggestions = []string{
	"A dragon who loves baking cookies",
	"The secret diary of a time traveler",
	"What if the moon was made of cheese?",
	"A conversation between two AI assistants",
	"The most unusual superhero origin story",
	"A detective story set in 3023",
	"A poem about quantum physics",
	"Instructions for taming a unicorn",
}

// RandomSuggestion picks one of the Suggestions uniformly at random.
func RandomSuggestion() string {
	return Suggestions[rand.IntN(len(Suggestions))]
}
