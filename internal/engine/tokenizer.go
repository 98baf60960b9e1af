package engine

import (
	"fmt"
	"log/slog"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the GPT-2 byte-pair encoding.
const DefaultEncoding = "r50k_base"

// Tokenizer converts between text and token ids.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// BPETokenizer is a Tokenizer backed by a tiktoken byte-pair encoding.
type BPETokenizer struct {
	name string
	tke  *tiktoken.Tiktoken
}

// LoadTokenizer loads the named tiktoken encoding. Loading may fetch the
// encoding ranks on first use, so callers build it lazily.
func LoadTokenizer(encoding string) (*BPETokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	slog.Debug("LoadTokenizer: loading encoding", "encoding", encoding)
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %q: %w", encoding, err)
	}
	return &BPETokenizer{name: encoding, tke: tke}, nil
}

// Encode tokenizes text. Special tokens are encoded as plain text.
func (t *BPETokenizer) Encode(text string) []int {
	return t.tke.Encode(text, nil, nil)
}

// Decode turns tokens back into text.
func (t *BPETokenizer) Decode(tokens []int) string {
	return t.tke.Decode(tokens)
}

// Name returns the encoding name.
func (t *BPETokenizer) Name() string {
	return t.name
}
