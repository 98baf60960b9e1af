// Package ollama implements the generation engine on top of a local Ollama
// server, using raw (template-free) prompts so the model continues the text
// exactly as a causal language model would.
package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/BTreeMap/MagicText/internal/engine"
	"github.com/BTreeMap/MagicText/internal/models"
)

// generator is the subset of *api.Client used here.
type generator interface {
	Generate(ctx context.Context, req *api.GenerateRequest, fn api.GenerateResponseFunc) error
}

// Opts holds configuration for the Ollama client.
type Opts struct {
	BaseURL   string
	Model     string
	Encoding  string
	Timeout   time.Duration
	Tokenizer engine.Tokenizer
}

// Option defines a configuration option for the Ollama client.
type Option func(*Opts)

// WithBaseURL sets the Ollama server URL; OLLAMA_HOST is used when empty.
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithEncoding sets the tiktoken encoding used when no tokenizer is supplied.
func WithEncoding(encoding string) Option {
	return func(o *Opts) { o.Encoding = encoding }
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// WithTokenizer supplies a preloaded tokenizer.
func WithTokenizer(t engine.Tokenizer) Option {
	return func(o *Opts) { o.Tokenizer = t }
}

// Client is an engine.Engine backed by Ollama's generate endpoint.
type Client struct {
	gen       generator
	tokenizer engine.Tokenizer
	model     string

	unsupportedOnce sync.Once
}

// NewClient creates an Ollama-backed engine.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama model not set")
	}

	var gen *api.Client
	if cfg.BaseURL == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client from environment: %w", err)
		}
		gen = c
	} else {
		base, err := url.Parse(strings.TrimSuffix(strings.TrimSuffix(cfg.BaseURL, "/"), "/v1"))
		if err != nil {
			return nil, fmt.Errorf("invalid ollama base URL %q: %w", cfg.BaseURL, err)
		}
		gen = api.NewClient(base, &http.Client{Timeout: cfg.Timeout})
	}

	tok := cfg.Tokenizer
	if tok == nil {
		bpe, err := engine.LoadTokenizer(cfg.Encoding)
		if err != nil {
			return nil, err
		}
		tok = bpe
	}

	slog.Debug("ollama.NewClient: client created", "base_url", cfg.BaseURL, "model", cfg.Model)
	return &Client{gen: gen, tokenizer: tok, model: cfg.Model}, nil
}

// Name implements engine.Named.
func (c *Client) Name() string {
	return "ollama"
}

// Encode implements engine.Engine.
func (c *Client) Encode(text string) ([]int, error) {
	return c.tokenizer.Encode(text), nil
}

// Decode implements engine.Engine.
func (c *Client) Decode(tokens []int) (string, error) {
	return c.tokenizer.Decode(tokens), nil
}

// Generate runs one non-streaming raw generation and returns the prompt
// tokens followed by the tokens of the completion.
func (c *Client) Generate(ctx context.Context, tokens []int, req models.GenerationRequest) ([]int, error) {
	budget, err := engine.NewBudget(len(tokens), req)
	if err != nil {
		return nil, err
	}

	options := map[string]interface{}{
		"num_predict": budget.MaxNewTokens,
	}
	if req.Temperature != nil {
		options["temperature"] = *req.Temperature
	}
	if req.TopK != nil {
		options["top_k"] = *req.TopK
	}
	if budget.MinNewTokens > 0 || req.NoRepeatNgramSize > 0 {
		c.unsupportedOnce.Do(func() {
			slog.Warn("Client.Generate: ollama does not support minimum length or n-gram blocking, ignoring them",
				"model", c.model, "min_new_tokens", budget.MinNewTokens, "no_repeat_ngram_size", req.NoRepeatNgramSize)
		})
	}

	stream := false
	greq := &api.GenerateRequest{
		Model:   c.model,
		Prompt:  c.tokenizer.Decode(tokens),
		Raw:     true,
		Stream:  &stream,
		Options: options,
	}

	var text strings.Builder
	var last api.GenerateResponse
	err = c.gen.Generate(ctx, greq, func(r api.GenerateResponse) error {
		text.WriteString(r.Response)
		last = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama generate failed: %w", err)
	}
	slog.Debug("Client.Generate: generation finished", "model", c.model, "done_reason", last.DoneReason,
		"eval_count", last.EvalCount, "text_len", text.Len())

	return append(slices.Clone(tokens), c.tokenizer.Encode(text.String())...), nil
}
