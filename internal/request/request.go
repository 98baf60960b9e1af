// Package request maps user-level generation controls into a fully bounded
// models.GenerationRequest.
package request

import (
	"math"
	"strings"

	"github.com/BTreeMap/MagicText/internal/models"
)

// Controls are the raw values coming from the presentation layer.
type Controls struct {
	Prompt      string
	Style       models.Style
	MaxLength   int      // 0 selects models.DefaultMaxLength
	Temperature *float64 // nil leaves the engine default
	TopK        *int     // nil leaves the engine default
}

// Policy holds the mode-dependent switches. Both are exposed as configuration
// because the two composition variants disagree on them.
type Policy struct {
	// DeriveMinLength forces substantial completions via
	// MinLength = max(50, round(0.7*MaxLength)).
	DeriveMinLength bool
	// NoRepeatNgramSize forbids repeating any n-token sequence; 0 disables it.
	NoRepeatNgramSize int
}

// DefaultPolicy returns the policy each composition mode was designed with.
func DefaultPolicy(mode models.CompositionMode) Policy {
	if mode == models.ModeInline {
		return Policy{}
	}
	return Policy{DeriveMinLength: true, NoRepeatNgramSize: models.DefaultNoRepeatNgramSize}
}

// Build validates and bounds c under p. It returns models.ErrInvalidInput when
// the prompt is blank; the engine must not be invoked in that case.
func Build(c Controls, p Policy) (models.GenerationRequest, error) {
	if strings.TrimSpace(c.Prompt) == "" {
		return models.GenerationRequest{}, models.ErrInvalidInput
	}

	maxLen := c.MaxLength
	if maxLen == 0 {
		maxLen = models.DefaultMaxLength
	}
	maxLen = clampInt(maxLen, models.MinMaxLength, models.MaxMaxLength)

	req := models.GenerationRequest{
		Prompt:        c.Prompt,
		Style:         c.Style,
		MaxLength:     maxLen,
		DoSample:      true,
		EarlyStopping: true,
	}
	if req.Style == "" {
		req.Style = models.StyleNone
	}

	if p.DeriveMinLength {
		minLen := MinLengthFor(maxLen)
		req.MinLength = &minLen
	}
	if p.NoRepeatNgramSize > 0 {
		req.NoRepeatNgramSize = p.NoRepeatNgramSize
	}
	if c.Temperature != nil {
		t := clampFloat(*c.Temperature, models.MinTemperature, models.MaxTemperature)
		req.Temperature = &t
	}
	if c.TopK != nil {
		k := clampInt(*c.TopK, models.MinTopK, models.MaxTopK)
		req.TopK = &k
	}
	return req, nil
}

// MinLengthFor derives the minimum total length for a bounded maxLen.
// The result never exceeds maxLen for maxLen >= models.MinMinLength.
func MinLengthFor(maxLen int) int {
	derived := int(math.Round(models.MinLengthRatio * float64(maxLen)))
	return min(max(models.MinMinLength, derived), maxLen)
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}
