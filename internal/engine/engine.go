// Package engine defines the boundary to the external pretrained
// text-generation model and the process-wide handle used to reach it.
//
// Backends live in their own packages (genai, ollama) and are selected at
// start-up; the pipeline only sees the Engine interface.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/BTreeMap/MagicText/internal/models"
)

// Engine is a pretrained sequence model treated as a black box.
//
// Generate is synchronous and returns the full token sequence: the input
// tokens followed by the generated ones, so that decoding the result echoes
// the prompt the same way a causal language model does.
type Engine interface {
	Encode(text string) ([]int, error)
	Generate(ctx context.Context, tokens []int, req models.GenerationRequest) ([]int, error)
	Decode(tokens []int) (string, error)
}

// Named is implemented by engines that can report which backend they use.
type Named interface {
	Name() string
}

// NameOf returns e's backend name, or "unknown".
func NameOf(e Engine) string {
	if n, ok := e.(Named); ok {
		return n.Name()
	}
	return "unknown"
}

var (
	// ErrPromptTooLong is returned when the encoded prompt already reaches MaxLength.
	ErrPromptTooLong = errors.New("prompt exceeds the maximum sequence length")
	// ErrEmptyPrompt is returned when Generate receives no input tokens.
	ErrEmptyPrompt = errors.New("no input tokens")
)

// Budget is the number of new tokens a backend may produce for req given
// promptLen input tokens. MaxLength and MinLength count the whole sequence,
// prompt included.
type Budget struct {
	MaxNewTokens int
	MinNewTokens int
}

// NewBudget computes the token budget, failing with ErrPromptTooLong when the
// prompt leaves no room for a completion.
func NewBudget(promptLen int, req models.GenerationRequest) (Budget, error) {
	if promptLen == 0 {
		return Budget{}, ErrEmptyPrompt
	}
	maxNew := req.MaxLength - promptLen
	if maxNew <= 0 {
		return Budget{}, fmt.Errorf("%w: %d prompt tokens, max length %d", ErrPromptTooLong, promptLen, req.MaxLength)
	}
	b := Budget{MaxNewTokens: maxNew}
	if req.MinLength != nil {
		b.MinNewTokens = min(max(*req.MinLength-promptLen, 0), maxNew)
	}
	return b, nil
}
