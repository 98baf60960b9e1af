// Package models defines the core data structures for MagicText.
//
// It includes the generation request and result types, the style and
// composition-mode enums, and the artifact handed to the presentation layer.
package models

import (
	"strings"
	"time"
)

// Style is a named tone/voice modifier applied to the prompt before generation.
type Style string

const (
	StyleCreative  Style = "creative"
	StyleFormal    Style = "formal"
	StyleHumorous  Style = "humorous"
	StylePoetic    Style = "poetic"
	StyleTechnical Style = "technical"
	// StyleNone applies no style modifier.
	StyleNone Style = "none"
)

// AllStyles lists the enumerated styles in presentation order.
var AllStyles = []Style{StyleCreative, StyleFormal, StyleHumorous, StylePoetic, StyleTechnical, StyleNone}

// ParseStyle normalizes a user-supplied style name. Unknown names are kept
// verbatim (lowercased) so that the style catalog can apply its fallback.
// An empty name maps to StyleNone.
func ParseStyle(s string) Style {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StyleNone
	}
	return Style(s)
}

// IsKnown reports whether the style is part of the enumerated set.
func (s Style) IsKnown() bool {
	for _, known := range AllStyles {
		if s == known {
			return true
		}
	}
	return false
}

// CompositionMode selects how the raw prompt and style are combined.
type CompositionMode string

const (
	// ModeInstructional prefixes an instruction phrase and appends a completion cue.
	ModeInstructional CompositionMode = "instructional"
	// ModeInline embeds the style name in a single "Write in a ... style" sentence.
	ModeInline CompositionMode = "inline"
)

// ParseCompositionMode parses a configured mode name. It reports false for unknown names.
func ParseCompositionMode(s string) (CompositionMode, bool) {
	switch CompositionMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeInstructional:
		return ModeInstructional, true
	case ModeInline, "inline-style", "inline_style":
		return ModeInline, true
	default:
		return "", false
	}
}

// Numeric bounds and defaults for generation controls.
const (
	MinMaxLength     = 50
	MaxMaxLength     = 500
	DefaultMaxLength = 150
	// MinMinLength is the floor for a derived minimum length.
	MinMinLength = 50
	// MinLengthRatio is the share of MaxLength used to derive MinLength.
	MinLengthRatio = 0.7

	MinTemperature = 0.1
	MaxTemperature = 1.5

	MinTopK = 10
	MaxTopK = 200

	// DefaultNoRepeatNgramSize forbids repeating any 3-token sequence.
	DefaultNoRepeatNgramSize = 3
)

// GenerationRequest is a fully bounded request to the generation engine.
type GenerationRequest struct {
	Prompt            string   `json:"prompt"`
	Style             Style    `json:"style"`
	MaxLength         int      `json:"max_length"`
	MinLength         *int     `json:"min_length,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	TopK              *int     `json:"top_k,omitempty"`
	NoRepeatNgramSize int      `json:"no_repeat_ngram_size,omitempty"` // 0 disables the constraint
	DoSample          bool     `json:"do_sample"`
	EarlyStopping     bool     `json:"early_stopping"`
}

// GenerationResult is created once per generation call and never mutated.
type GenerationResult struct {
	ID             string    `json:"id"`
	RawText        string    `json:"raw_text"`
	NormalizedText string    `json:"normalized_text"`
	ComposedPrompt string    `json:"composed_prompt"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsEmpty reports whether normalization left no usable completion.
func (r *GenerationResult) IsEmpty() bool {
	return r == nil || r.NormalizedText == ""
}

// Artifact is the downloadable plain-text file produced by a successful generation.
type Artifact struct {
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	ResultID  string    `json:"result_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedbackRating is a user's reaction to a generated text.
type FeedbackRating string

const (
	RatingAmazing  FeedbackRating = "amazing"
	RatingGood     FeedbackRating = "good"
	RatingOkay     FeedbackRating = "okay"
	RatingNotGreat FeedbackRating = "not_great"
)

// IsValidFeedbackRating checks if the given rating is supported.
func IsValidFeedbackRating(r FeedbackRating) bool {
	switch r {
	case RatingAmazing, RatingGood, RatingOkay, RatingNotGreat:
		return true
	default:
		return false
	}
}

// Feedback is a rating submitted for a generated artifact.
type Feedback struct {
	Artifact string         `json:"artifact"`
	Rating   FeedbackRating `json:"rating"`
}

// Validate performs validation on a Feedback structure.
func (f *Feedback) Validate() error {
	if !IsValidFeedbackRating(f.Rating) {
		return ErrInvalidRating
	}
	return nil
}
