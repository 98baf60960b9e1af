package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/BTreeMap/MagicText/internal/api"
	"github.com/BTreeMap/MagicText/internal/artifact"
	"github.com/BTreeMap/MagicText/internal/config"
	"github.com/BTreeMap/MagicText/internal/engine"
	"github.com/BTreeMap/MagicText/internal/genai"
	"github.com/BTreeMap/MagicText/internal/lockfile"
	"github.com/BTreeMap/MagicText/internal/models"
	"github.com/BTreeMap/MagicText/internal/ollama"
	"github.com/BTreeMap/MagicText/internal/pipeline"
	"github.com/BTreeMap/MagicText/internal/store"
	"github.com/BTreeMap/MagicText/internal/util"
)

// DebugEnv enables debug logging when truthy.
const DebugEnv = "MAGICTEXT_DEBUG"

// Exit codes of the one-shot mode.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	initializeLogger()

	cfg, err := loadEnvironmentConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(exitUsage)
	}

	flags, err := parseCommandLineFlags(flag.CommandLine, os.Args[1:], cfg)
	if err != nil {
		slog.Error("Invalid command line", "error", err)
		os.Exit(exitUsage)
	}

	lazy := engine.NewLazy(buildEngineFactory(cfg))
	pipe := pipeline.New(lazy, buildPipelineOptions(cfg)...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.oneShot() {
		code := runOnce(ctx, pipe, flags.input(), *flags.outDir, cfg.ArtifactPrefix, os.Stdout)
		stop()
		os.Exit(code)
	}

	st, closeStore, err := openStore(cfg)
	if err != nil {
		slog.Error("Failed to open artifact store", "error", err)
		os.Exit(exitFailure)
	}
	defer closeStore()

	slog.Info("Bootstrapping MagicText", "engine", cfg.Engine, "model", cfg.Model, "mode", cfg.Mode,
		"store", cfg.Store, "api_addr", cfg.APIAddr)
	srv := api.NewServer(pipe, st, buildAPIOptions(cfg)...)
	if err := srv.Run(ctx); err != nil {
		slog.Error("MagicText failed to run", "error", err)
		closeStore()
		os.Exit(exitFailure)
	}
	slog.Info("MagicText exited successfully")
}

// Flags holds the command line values that are not configuration keys.
// Configuration keys are bound straight into the *config.Config.
type Flags struct {
	prompt      *string
	style       *string
	maxLength   *int
	temperature *float64
	topK        *int
	outDir      *string
}

func (f Flags) oneShot() bool {
	return *f.prompt != ""
}

func (f Flags) input() pipeline.Input {
	return pipeline.Input{
		Prompt:      *f.prompt,
		Style:       models.ParseStyle(*f.style),
		MaxLength:   *f.maxLength,
		Temperature: f.temperature,
		TopK:        f.topK,
	}
}

// initializeLogger sets up structured logging; MAGICTEXT_DEBUG selects debug level.
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: util.LogLevelFromEnv(DebugEnv)}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads .env, then the optional TOML file named by
// MAGICTEXT_CONFIG, then the environment.
func loadEnvironmentConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	cfg, err := config.Load(os.Getenv(config.PathEnv))
	if err != nil {
		return nil, err
	}

	slog.Debug("environment configuration loaded",
		"state_dir", cfg.StateDir,
		"store", cfg.Store,
		"database_url_set", cfg.DatabaseURL != "",
		"mode", cfg.Mode,
		"engine", cfg.Engine,
		"engine_base_url", cfg.EngineBaseURL,
		"openai_api_key_set", cfg.OpenAIKey != "",
		"model", cfg.Model,
		"api_addr", cfg.APIAddr)
	return cfg, nil
}

// parseCommandLineFlags parses args into fs. Configuration flags default to,
// and override, the values already in cfg.
func parseCommandLineFlags(fs *flag.FlagSet, args []string, cfg *config.Config) (Flags, error) {
	fs.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "state directory for the SQLite artifact store (overrides $MAGICTEXT_STATE_DIR)")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "artifact store: sql or memory (overrides $MAGICTEXT_STORE)")
	fs.StringVar(&cfg.DatabaseURL, "db-dsn", cfg.DatabaseURL, "artifact database DSN (overrides $DATABASE_URL)")
	fs.StringVar(&cfg.APIAddr, "api-addr", cfg.APIAddr, "API server address (overrides $API_ADDR)")
	fs.StringVar(&cfg.ArtifactPrefix, "artifact-prefix", cfg.ArtifactPrefix, "artifact file name prefix (overrides $MAGICTEXT_ARTIFACT_PREFIX)")
	fs.DurationVar(&cfg.ArtifactTTL, "artifact-ttl", cfg.ArtifactTTL, "how long the latest artifact stays downloadable, 0 for no expiry (overrides $MAGICTEXT_ARTIFACT_TTL)")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "prompt composition mode: instructional or inline (overrides $MAGICTEXT_MODE)")
	fs.StringVar(&cfg.Engine, "engine", cfg.Engine, "generation backend: openai or ollama (overrides $MAGICTEXT_ENGINE)")
	fs.StringVar(&cfg.EngineBaseURL, "engine-base-url", cfg.EngineBaseURL, "backend base URL (overrides $MAGICTEXT_ENGINE_BASE_URL)")
	fs.StringVar(&cfg.OpenAIKey, "openai-api-key", cfg.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "model name (overrides $MAGICTEXT_MODEL)")
	fs.StringVar(&cfg.Encoding, "encoding", cfg.Encoding, "tiktoken encoding of the model (overrides $MAGICTEXT_ENCODING)")
	fs.DurationVar(&cfg.EngineTimeout, "engine-timeout", cfg.EngineTimeout, "maximum time per generation, 0 for none (overrides $MAGICTEXT_ENGINE_TIMEOUT)")
	fs.Func("derive-min-length", "force min_length = max(50, round(0.7*max_length)) (overrides $MAGICTEXT_DERIVE_MIN_LENGTH)", func(s string) error {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		cfg.DeriveMinLength = &b
		return nil
	})
	fs.Func("no-repeat-ngram-size", "forbid repeated n-grams of this size, 0 to disable (overrides $MAGICTEXT_NO_REPEAT_NGRAM_SIZE)", func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		cfg.NoRepeatNgramSize = &n
		return nil
	})

	flags := Flags{
		prompt:    fs.String("prompt", "", "generate once for this prompt and exit instead of serving HTTP"),
		style:     fs.String("style", string(models.StyleNone), "writing style for -prompt"),
		maxLength: fs.Int("max-length", models.DefaultMaxLength, "maximum length in tokens for -prompt"),
		outDir:    fs.String("out-dir", ".", "directory the -prompt artifact is written to"),
	}
	fs.Func("temperature", "sampling temperature for -prompt (0.1 to 1.5)", func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		flags.temperature = &v
		return nil
	})
	fs.Func("top-k", "top-k sampling for -prompt (10 to 200)", func(s string) error {
		v, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		flags.topK = &v
		return nil
	})

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Flags{}, err
	}

	slog.Debug("flags parsed",
		"one_shot", *flags.prompt != "",
		"state_dir", cfg.StateDir,
		"store", cfg.Store,
		"db_dsn_set", cfg.DatabaseURL != "",
		"engine", cfg.Engine,
		"model", cfg.Model,
		"api_addr", cfg.APIAddr)
	return flags, nil
}

// buildEngineFactory returns the constructor the lazy engine handle calls on first use.
func buildEngineFactory(cfg *config.Config) engine.Factory {
	return func() (engine.Engine, error) {
		if strings.EqualFold(cfg.Engine, config.EngineOllama) {
			c, err := ollama.NewClient(buildOllamaOptions(cfg)...)
			if err != nil {
				return nil, err
			}
			return c, nil
		}
		c, err := genai.NewClient(buildGenAIOptions(cfg)...)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// buildGenAIOptions constructs options for the OpenAI-compatible backend.
func buildGenAIOptions(cfg *config.Config) []genai.Option {
	var opts []genai.Option
	if cfg.OpenAIKey != "" {
		opts = append(opts, genai.WithAPIKey(cfg.OpenAIKey))
	}
	if cfg.EngineBaseURL != "" {
		opts = append(opts, genai.WithBaseURL(cfg.EngineBaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, genai.WithModel(cfg.Model))
	}
	if cfg.Encoding != "" {
		opts = append(opts, genai.WithEncoding(cfg.Encoding))
	}
	if cfg.EngineTimeout > 0 {
		opts = append(opts, genai.WithTimeout(cfg.EngineTimeout))
	}
	return opts
}

// buildOllamaOptions constructs options for the Ollama backend.
func buildOllamaOptions(cfg *config.Config) []ollama.Option {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.EngineBaseURL != "" {
		opts = append(opts, ollama.WithBaseURL(cfg.EngineBaseURL))
	}
	if cfg.Encoding != "" {
		opts = append(opts, ollama.WithEncoding(cfg.Encoding))
	}
	if cfg.EngineTimeout > 0 {
		opts = append(opts, ollama.WithTimeout(cfg.EngineTimeout))
	}
	return opts
}

// buildPipelineOptions constructs pipeline options from the configuration.
func buildPipelineOptions(cfg *config.Config) []pipeline.Option {
	opts := []pipeline.Option{
		pipeline.WithMode(cfg.CompositionMode()),
		pipeline.WithPolicy(cfg.Policy()),
	}
	if cfg.EngineTimeout > 0 {
		opts = append(opts, pipeline.WithTimeout(cfg.EngineTimeout))
	}
	return opts
}

// buildStoreOptions constructs store options for the configured DSN.
func buildStoreOptions(cfg *config.Config) []store.Option {
	opts := []store.Option{store.WithTTL(cfg.ArtifactTTL)}
	dsn := cfg.DSN()
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_set", true)
		return append(opts, store.WithPostgresDSN(dsn))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", dsn)
	return append(opts, store.WithSQLiteDSN(dsn))
}

// buildAPIOptions constructs API server options.
func buildAPIOptions(cfg *config.Config) []api.Option {
	var opts []api.Option
	if cfg.APIAddr != "" {
		opts = append(opts, api.WithAddr(cfg.APIAddr))
	}
	if cfg.ArtifactPrefix != "" {
		opts = append(opts, api.WithArtifactPrefix(cfg.ArtifactPrefix))
	}
	return opts
}

// openStore opens the configured artifact store. A SQLite store also locks
// its directory. The returned func closes everything and is safe to call twice.
func openStore(cfg *config.Config) (store.Store, func(), error) {
	if strings.EqualFold(cfg.Store, config.StoreMemory) {
		st := store.NewInMemoryStore(store.WithTTL(cfg.ArtifactTTL))
		return st, func() { st.Close() }, nil
	}

	opts := buildStoreOptions(cfg)
	dsn := cfg.DSN()
	if store.DetectDSNType(dsn) == "postgres" {
		st, err := store.NewPostgresStore(opts...)
		if err != nil {
			return nil, nil, err
		}
		return st, closeOnce(st.Close, nil), nil
	}

	lock, err := lockfile.AcquireLock(filepath.Dir(dsn))
	if err != nil {
		return nil, nil, err
	}
	st, err := store.NewSQLiteStore(opts...)
	if err != nil {
		lock.Release()
		return nil, nil, err
	}
	return st, closeOnce(st.Close, lock), nil
}

func closeOnce(closeFn func() error, lock *lockfile.Lock) func() {
	done := false
	return func() {
		if done {
			return
		}
		done = true
		if err := closeFn(); err != nil {
			slog.Error("Failed to close artifact store", "error", err)
		}
		if err := lock.Release(); err != nil {
			slog.Error("Failed to release state directory lock", "error", err)
		}
	}
}

// runOnce generates a single text, prints it to w and writes the artifact
// into outDir. It returns the process exit code.
func runOnce(ctx context.Context, gen api.Generator, in pipeline.Input, outDir, prefix string, w io.Writer) int {
	start := time.Now()
	res, err := gen.Generate(ctx, in)
	if err != nil {
		var engErr *models.EngineError
		switch {
		case errors.Is(err, models.ErrInvalidInput):
			fmt.Fprintln(w, models.BlankPromptWarning)
			return exitUsage
		case errors.As(err, &engErr):
			fmt.Fprintln(w, engErr.UserMessage())
		default:
			fmt.Fprintln(w, "Error:", err)
		}
		return exitFailure
	}

	a, ok := artifact.FromResult(res, prefix)
	if !ok {
		fmt.Fprintln(w, models.EmptyResultMessage)
		return exitFailure
	}
	fmt.Fprintln(w, res.NormalizedText)

	path, err := artifact.WriteFile(outDir, a)
	if err != nil {
		slog.Error("Failed to write artifact", "error", err)
		return exitFailure
	}
	slog.Info("Generation complete", "artifact", path, "elapsed", time.Since(start))
	return exitOK
}
