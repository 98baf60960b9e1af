// Package pipeline runs one prompt-to-generation pass: request building,
// prompt composition, the engine call and output normalization.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/BTreeMap/MagicText/internal/compose"
	"github.com/BTreeMap/MagicText/internal/engine"
	"github.com/BTreeMap/MagicText/internal/metrics"
	"github.com/BTreeMap/MagicText/internal/models"
	"github.com/BTreeMap/MagicText/internal/normalize"
	"github.com/BTreeMap/MagicText/internal/request"
)

// Input is the user-level input of one generation.
type Input = request.Controls

// Opts holds configuration for a Pipeline.
type Opts struct {
	Mode    models.CompositionMode
	Policy  *request.Policy
	Timeout time.Duration
	Clock   func() time.Time
}

// Option defines a configuration option for the pipeline.
type Option func(*Opts)

// WithMode selects how prompts are composed.
func WithMode(mode models.CompositionMode) Option {
	return func(o *Opts) { o.Mode = mode }
}

// WithPolicy overrides the min-length and repetition switches. Without it the
// mode's default policy applies.
func WithPolicy(p request.Policy) Option {
	return func(o *Opts) { o.Policy = &p }
}

// WithTimeout bounds the engine call. Zero waits indefinitely.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// WithClock replaces time.Now for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) { o.Clock = now }
}

// Pipeline turns user input into a normalized GenerationResult.
type Pipeline struct {
	engine  *engine.Lazy
	mode    models.CompositionMode
	policy  request.Policy
	timeout time.Duration
	now     func() time.Time
}

// New creates a pipeline that reaches the engine through lazy.
func New(lazy *engine.Lazy, opts ...Option) *Pipeline {
	cfg := Opts{Mode: models.ModeInstructional, Clock: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	policy := request.DefaultPolicy(cfg.Mode)
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}
	return &Pipeline{
		engine:  lazy,
		mode:    cfg.Mode,
		policy:  policy,
		timeout: cfg.Timeout,
		now:     cfg.Clock,
	}
}

// Mode returns the configured composition mode.
func (p *Pipeline) Mode() models.CompositionMode {
	return p.mode
}

// Policy returns the effective request policy.
func (p *Pipeline) Policy() request.Policy {
	return p.policy
}

// EngineLoaded reports whether the engine has been constructed.
func (p *Pipeline) EngineLoaded() bool {
	return p.engine.Loaded()
}

// Generate runs the pipeline once.
//
// A blank prompt returns models.ErrInvalidInput without touching the engine.
// Any engine failure, panics included, is returned as *models.EngineError.
// A result whose normalized text is empty is not an error; callers check
// GenerationResult.IsEmpty.
func (p *Pipeline) Generate(ctx context.Context, in Input) (*models.GenerationResult, error) {
	req, err := request.Build(in, p.policy)
	if err != nil {
		slog.Warn("Pipeline.Generate: invalid input", "error", err)
		metrics.GenerationsTotal.WithLabelValues("none", metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	composed := compose.Compose(req.Prompt, req.Style, p.mode)
	slog.Debug("Pipeline.Generate: request built", "style", req.Style, "mode", p.mode,
		"max_length", req.MaxLength, "composed_len", len(composed))

	raw, backend, err := p.run(ctx, composed, req)
	if err != nil {
		slog.Error("Pipeline.Generate: engine failure", "backend", backend, "error", err)
		metrics.GenerationsTotal.WithLabelValues(backend, metrics.OutcomeError).Inc()
		return nil, err
	}

	result := &models.GenerationResult{
		ID:             uuid.NewString(),
		RawText:        raw,
		NormalizedText: normalize.Normalize(raw, composed, req.Prompt),
		ComposedPrompt: composed,
		CreatedAt:      p.now(),
	}

	outcome := metrics.OutcomeOK
	if result.IsEmpty() {
		outcome = metrics.OutcomeEmpty
		slog.Warn("Pipeline.Generate: engine produced no usable completion", "id", result.ID, "backend", backend)
	} else {
		slog.Info("Pipeline.Generate: generation completed", "id", result.ID, "backend", backend,
			"text_len", len(result.NormalizedText))
	}
	metrics.GenerationsTotal.WithLabelValues(backend, outcome).Inc()
	return result, nil
}

// run performs encode, generate and decode, converting every failure into a
// *models.EngineError tagged with the stage that failed.
func (p *Pipeline) run(ctx context.Context, composed string, req models.GenerationRequest) (text string, backend string, err error) {
	stage := models.StageInit
	backend = "unknown"
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Pipeline.run: recovered from engine panic", "stage", stage, "panic", r)
			text = ""
			err = &models.EngineError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	eng, err := p.engine.Get()
	if err != nil {
		return "", backend, &models.EngineError{Stage: stage, Err: err}
	}
	metrics.EngineLoaded.Set(1)
	backend = engine.NameOf(eng)

	stage = models.StageEncode
	tokens, err := eng.Encode(composed)
	if err != nil {
		return "", backend, &models.EngineError{Stage: stage, Err: err}
	}
	metrics.PromptTokens.Observe(float64(len(tokens)))

	stage = models.StageGenerate
	genCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	start := time.Now()
	out, err := eng.Generate(genCtx, tokens, req)
	metrics.GenerationDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("generation did not finish within %s: %w", p.timeout, err)
		}
		return "", backend, &models.EngineError{Stage: stage, Err: err}
	}
	metrics.CompletionTokens.Observe(float64(max(len(out)-len(tokens), 0)))

	stage = models.StageDecode
	text, err = eng.Decode(out)
	if err != nil {
		return "", backend, &models.EngineError{Stage: stage, Err: err}
	}
	return text, backend, nil
}
