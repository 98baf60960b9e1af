package engine

import (
	"log/slog"
	"sync"
)

// Factory constructs an Engine. It is called at most once successfully per Lazy.
type Factory func() (Engine, error)

// Lazy is the process-wide engine handle. The engine (model client plus
// tokenizer) is built on first use and then reused read-only. Construction is
// serialized; a failed construction is reported to the caller and attempted
// again on the next Get.
type Lazy struct {
	mu      sync.Mutex
	factory Factory
	engine  Engine
}

// NewLazy creates a handle that builds its engine with factory on first use.
func NewLazy(factory Factory) *Lazy {
	return &Lazy{factory: factory}
}

// Get returns the engine, constructing it if this is the first successful call.
func (l *Lazy) Get() (Engine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.engine != nil {
		return l.engine, nil
	}
	slog.Debug("Lazy.Get: constructing generation engine")
	eng, err := l.factory()
	if err != nil {
		slog.Error("Lazy.Get: engine construction failed", "error", err)
		return nil, err
	}
	l.engine = eng
	slog.Info("Lazy.Get: generation engine ready", "backend", NameOf(eng))
	return eng, nil
}

// Loaded reports whether the engine has been constructed.
func (l *Lazy) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine != nil
}
