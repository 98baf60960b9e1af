// Package genai implements the generation engine on top of an
// OpenAI-compatible Completions endpoint (for example a vLLM server hosting
// gpt2) using the openai-go SDK.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/BTreeMap/MagicText/internal/engine"
	"github.com/BTreeMap/MagicText/internal/models"
)

// DefaultModel is the completion model requested when none is configured.
const DefaultModel = "gpt2"

var (
	ErrNoChoicesReturned = errors.New("no choices returned")
	ErrAPIKeyNotSet      = errors.New("OPENAI_API_KEY not set")
)

// completionService defines the minimal interface for legacy completions.
type completionService interface {
	New(ctx context.Context, body openai.CompletionNewParams, opts ...option.RequestOption) (*openai.Completion, error)
}

// Opts holds configuration for the GenAI client.
type Opts struct {
	APIKey    string
	BaseURL   string
	Model     string
	Encoding  string
	Timeout   time.Duration
	Tokenizer engine.Tokenizer
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL points the client at an OpenAI-compatible server.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel sets the completion model name.
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

// Client is an engine.Engine backed by the Completions API.
type Client struct {
	completions completionService
	tokenizer   engine.Tokenizer
	model       string
}

// NewClient initializes a new GenAI client. An API key is required unless a
// custom base URL is configured.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{Model: DefaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("genai.NewClient: creating client", "model", cfg.Model, "base_url", cfg.BaseURL, "api_key_set", cfg.APIKey != "")

	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, ErrAPIKeyNotSet
	}

	tok := cfg.Tokenizer
	if tok == nil {
		bpe, err := engine.LoadTokenizer(cfg.Encoding)
		if err != nil {
			return nil, err
		}
		tok = bpe
	}

	// Failed generations are never retried; the user must ask again.
	reqOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(cfg.Timeout))
	}
	cli := openai.NewClient(reqOpts...)

	return &Client{completions: &cli.Completions, tokenizer: tok, model: cfg.Model}, nil
}

// Name implements engine.Named.
func (c *Client) Name() string {
	return "openai"
}

// Encode implements engine.Engine.
func (c *Client) Encode(text string) ([]int, error) {
	return c.tokenizer.Encode(text), nil
}

// Decode implements engine.Engine.
func (c *Client) Decode(tokens []int) (string, error) {
	return c.tokenizer.Decode(tokens), nil
}

// Generate sends the prompt tokens to the Completions endpoint and returns
// the prompt tokens followed by the tokens of the completion.
func (c *Client) Generate(ctx context.Context, tokens []int, req models.GenerationRequest) ([]int, error) {
	budget, err := engine.NewBudget(len(tokens), req)
	if err != nil {
		return nil, err
	}

	prompt := make([]int64, len(tokens))
	for i, tok := range tokens {
		prompt[i] = int64(tok)
	}
	params := openai.CompletionNewParams{
		Model:     openai.CompletionNewParamsModel(c.model),
		Prompt:    openai.CompletionNewParamsPromptUnion{OfArrayOfTokens: prompt},
		MaxTokens: openai.Int(int64(budget.MaxNewTokens)),
		N:         openai.Int(1),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	// Sampling controls outside the OpenAI schema are understood by
	// OpenAI-compatible inference servers and ignored elsewhere.
	var extra []option.RequestOption
	if req.TopK != nil {
		extra = append(extra, option.WithJSONSet("top_k", *req.TopK))
	}
	if budget.MinNewTokens > 0 {
		extra = append(extra, option.WithJSONSet("min_tokens", budget.MinNewTokens))
	}
	if req.NoRepeatNgramSize > 0 {
		extra = append(extra, option.WithJSONSet("no_repeat_ngram_size", req.NoRepeatNgramSize))
	}

	slog.Debug("Client.Generate: requesting completion", "model", c.model, "prompt_tokens", len(tokens),
		"max_new_tokens", budget.MaxNewTokens, "min_new_tokens", budget.MinNewTokens)
	resp, err := c.completions.New(ctx, params, extra...)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoicesReturned
	}

	choice := resp.Choices[0]
	slog.Debug("Client.Generate: completion received", "finish_reason", string(choice.FinishReason),
		"completion_tokens", resp.Usage.CompletionTokens, "text_len", len(choice.Text))

	return append(slices.Clone(tokens), c.tokenizer.Encode(choice.Text)...), nil
}
