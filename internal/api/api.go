// Package api exposes the generation pipeline over HTTP.
//
// Endpoints generate text, serve the latest artifact as a download, list
// styles and prompt suggestions, accept feedback and expose metrics.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BTreeMap/MagicText/internal/models"
	"github.com/BTreeMap/MagicText/internal/pipeline"
	"github.com/BTreeMap/MagicText/internal/store"
)

// Server defaults.
const (
	DefaultServerAddress = ":8080"
	DefaultReadTimeout   = 10 * time.Second
	// Generation can take a while on CPU-bound engines.
	DefaultWriteTimeout    = 5 * time.Minute
	DefaultShutdownTimeout = 10 * time.Second
	maxRequestBodyBytes    = 1 << 20
)

// Generator runs one generation. *pipeline.Pipeline implements it.
type Generator interface {
	Generate(ctx context.Context, in pipeline.Input) (*models.GenerationResult, error)
	EngineLoaded() bool
}

// Opts holds configuration for the API server.
type Opts struct {
	Addr           string
	ArtifactPrefix string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithArtifactPrefix sets the file name prefix of downloadable artifacts.
func WithArtifactPrefix(prefix string) Option {
	return func(o *Opts) { o.ArtifactPrefix = prefix }
}

// Server serves the HTTP API.
type Server struct {
	gen    Generator
	store  store.Store
	addr   string
	prefix string
}

// NewServer creates a server around gen and st.
func NewServer(gen Generator, st store.Store, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultServerAddress}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultServerAddress
	}
	return &Server{gen: gen, store: st, addr: cfg.Addr, prefix: cfg.ArtifactPrefix}
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/generate", instrument("/generate", s.generateHandler))
	mux.HandleFunc("/artifacts/latest", instrument("/artifacts/latest", s.latestArtifactHandler))
	mux.HandleFunc("/styles", instrument("/styles", s.stylesHandler))
	mux.HandleFunc("/suggestions/random", instrument("/suggestions/random", s.randomSuggestionHandler))
	mux.HandleFunc("/feedback", instrument("/feedback", s.feedbackHandler))
	mux.HandleFunc("/health", instrument("/health", s.healthHandler))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: MagicText API listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		slog.Error("Server.Run: server failed", "error", err)
		return err
	case <-ctx.Done():
		slog.Info("Server.Run: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server.Run: graceful shutdown failed", "error", err)
			return err
		}
		slog.Info("Server.Run: server stopped")
		return nil
	}
}
