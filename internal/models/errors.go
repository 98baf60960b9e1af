package models

import (
	"errors"
	"fmt"
)

// Error variables for better error handling and testability
var (
	// ErrInvalidInput is returned when the prompt is blank after trimming whitespace.
	ErrInvalidInput = errors.New("prompt must not be blank")
	// ErrEngineFailure matches every *EngineError via errors.Is.
	ErrEngineFailure = errors.New("generation engine failure")
	ErrInvalidRating = errors.New("invalid feedback rating")
)

// EngineStage names the engine operation that failed.
type EngineStage string

const (
	StageInit     EngineStage = "init"
	StageEncode   EngineStage = "encode"
	StageGenerate EngineStage = "generate"
	StageDecode   EngineStage = "decode"
)

// EngineError wraps any failure raised while loading the engine or while
// encoding, generating or decoding.
type EngineError struct {
	Stage EngineStage
	Err   error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s failed: %v", e.Stage, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrEngineFailure) match any EngineError.
func (e *EngineError) Is(target error) bool {
	return target == ErrEngineFailure
}

// UserMessage is the human-readable message shown to the user.
func (e *EngineError) UserMessage() string {
	return fmt.Sprintf("The magic spell failed! Error: %v", e.Err)
}

// BlankPromptWarning is shown instead of generating when the prompt is blank.
const BlankPromptWarning = "The wizard needs a prompt to work the magic! Please enter some text."

// EmptyResultMessage is shown when the engine produced no usable completion.
const EmptyResultMessage = "The spell fizzled: the engine produced no usable completion. Try again."
