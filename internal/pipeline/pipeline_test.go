package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BTreeMap/MagicText/internal/engine"
	"github.com/BTreeMap/MagicText/internal/models"
	"github.com/BTreeMap/MagicText/internal/request"
	"github.com/BTreeMap/MagicText/internal/testutil"
)

func newPipeline(eng engine.Engine, opts ...Option) *Pipeline {
	return New(engine.NewLazy(func() (engine.Engine, error) { return eng, nil }), opts...)
}

func TestGenerateDragonScenario(t *testing.T) {
	eng := &testutil.ScriptedEngine{Completion: " She whisked the batter with her tail"}
	fixed := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	p := newPipeline(eng, WithClock(func() time.Time { return fixed }))

	res, err := p.Generate(context.Background(), Input{
		Prompt:    "A dragon who loves baking cookies",
		Style:     models.StylePoetic,
		MaxLength: 150,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.ComposedPrompt,
		"Write a poetic and lyrical completion of: A dragon who loves baking cookies\n\nCompletion:"))
	assert.Equal(t, res.ComposedPrompt, eng.LastPrompt)
	require.NotNil(t, eng.LastRequest.MinLength)
	assert.Equal(t, 105, *eng.LastRequest.MinLength)
	assert.Equal(t, 3, eng.LastRequest.NoRepeatNgramSize)

	assert.Equal(t, "She whisked the batter with her tail.", res.NormalizedText)
	assert.Equal(t, res.ComposedPrompt+" She whisked the batter with her tail", res.RawText)
	assert.Equal(t, fixed, res.CreatedAt)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 1, eng.Calls())
}

func TestGenerateBlankPromptSkipsEngine(t *testing.T) {
	built := false
	lazy := engine.NewLazy(func() (engine.Engine, error) {
		built = true
		return &testutil.ScriptedEngine{}, nil
	})
	p := New(lazy)

	for _, prompt := range []string{"", "   ", "\n\t"} {
		res, err := p.Generate(context.Background(), Input{Prompt: prompt})
		assert.ErrorIs(t, err, models.ErrInvalidInput)
		assert.Nil(t, res)
	}
	assert.False(t, built, "engine must not be constructed for a blank prompt")
	assert.False(t, p.EngineLoaded())
}

func TestGenerateEngineFailures(t *testing.T) {
	boom := errors.New("CUDA out of memory")
	tests := []struct {
		name  string
		eng   *testutil.ScriptedEngine
		stage models.EngineStage
	}{
		{"encode", &testutil.ScriptedEngine{EncodeErr: boom}, models.StageEncode},
		{"generate", &testutil.ScriptedEngine{GenerateErr: boom}, models.StageGenerate},
		{"decode", &testutil.ScriptedEngine{DecodeErr: boom}, models.StageDecode},
		{"panic", &testutil.ScriptedEngine{Panic: "index out of range"}, models.StageGenerate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newPipeline(tt.eng).Generate(context.Background(), Input{Prompt: "hello"})
			assert.Nil(t, res)
			require.ErrorIs(t, err, models.ErrEngineFailure)

			var engErr *models.EngineError
			require.True(t, errors.As(err, &engErr))
			assert.Equal(t, tt.stage, engErr.Stage)
			assert.True(t, strings.HasPrefix(engErr.UserMessage(), "The magic spell failed! Error: "))
		})
	}
}

func TestGenerateEngineInitFailure(t *testing.T) {
	cause := errors.New("model weights not found")
	p := New(engine.NewLazy(func() (engine.Engine, error) { return nil, cause }))

	_, err := p.Generate(context.Background(), Input{Prompt: "hello"})
	var engErr *models.EngineError
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, models.StageInit, engErr.Stage)
	assert.ErrorIs(t, err, cause)
}

func TestGenerateEmptyCompletion(t *testing.T) {
	eng := &testutil.ScriptedEngine{Completion: "   "}
	res, err := newPipeline(eng).Generate(context.Background(), Input{Prompt: "hello"})
	require.NoError(t, err)
	assert.True(t, res.IsEmpty())
	assert.Equal(t, "", res.NormalizedText)
}

func TestGenerateInlineMode(t *testing.T) {
	eng := &testutil.ScriptedEngine{Completion: " and the crowd roared!"}
	p := newPipeline(eng, WithMode(models.ModeInline))

	res, err := p.Generate(context.Background(), Input{Prompt: "The match began", Style: models.StyleHumorous})
	require.NoError(t, err)
	assert.Equal(t, "Write in a humorous style: The match began", res.ComposedPrompt)
	assert.Equal(t, "and the crowd roared!", res.NormalizedText)
	assert.Nil(t, eng.LastRequest.MinLength)
	assert.Zero(t, eng.LastRequest.NoRepeatNgramSize)
}

func TestGeneratePolicyOverride(t *testing.T) {
	eng := &testutil.ScriptedEngine{Completion: " ok"}
	p := newPipeline(eng, WithMode(models.ModeInline), WithPolicy(request.Policy{DeriveMinLength: true, NoRepeatNgramSize: 2}))

	_, err := p.Generate(context.Background(), Input{Prompt: "x", MaxLength: 200})
	require.NoError(t, err)
	require.NotNil(t, eng.LastRequest.MinLength)
	assert.Equal(t, 140, *eng.LastRequest.MinLength)
	assert.Equal(t, 2, eng.LastRequest.NoRepeatNgramSize)
}

type blockingEngine struct{ testutil.ScriptedEngine }

func (b *blockingEngine) Generate(ctx context.Context, tokens []int, req models.GenerationRequest) ([]int, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestGenerateTimeout(t *testing.T) {
	p := newPipeline(&blockingEngine{}, WithTimeout(20*time.Millisecond))

	_, err := p.Generate(context.Background(), Input{Prompt: "hello"})
	require.ErrorIs(t, err, models.ErrEngineFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerateReusesEngine(t *testing.T) {
	builds := 0
	eng := &testutil.ScriptedEngine{Completion: " done"}
	p := New(engine.NewLazy(func() (engine.Engine, error) {
		builds++
		return eng, nil
	}))

	for i := 0; i < 3; i++ {
		_, err := p.Generate(context.Background(), Input{Prompt: "again"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, builds)
	assert.Equal(t, 3, eng.Calls())
	assert.True(t, p.EngineLoaded())
}
