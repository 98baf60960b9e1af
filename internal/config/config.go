// Package config loads MagicText settings from built-in defaults, an optional
// TOML file and the environment, in increasing order of precedence.
// Command-line flags are applied on top by the binary.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"

	"github.com/BTreeMap/MagicText/internal/artifact"
	"github.com/BTreeMap/MagicText/internal/engine"
	"github.com/BTreeMap/MagicText/internal/models"
	"github.com/BTreeMap/MagicText/internal/request"
)

// PathEnv names the environment variable holding the TOML config path.
const PathEnv = "MAGICTEXT_CONFIG"

// Defaults.
const (
	DefaultAPIAddr     = ":8080"
	DefaultStateDir    = "/var/lib/magictext"
	DefaultDBFileName  = "magictext.db"
	DefaultArtifactTTL = time.Hour
	DefaultModel       = "gpt2"
)

// Engine backends.
const (
	EngineOpenAI = "openai"
	EngineOllama = "ollama"
)

// Artifact store kinds.
const (
	StoreSQL    = "sql"
	StoreMemory = "memory"
)

// Config holds every setting of the service. Pointer fields are optional
// overrides whose absence means "use the mode's default".
type Config struct {
	APIAddr        string        `toml:"api_addr" envconfig:"API_ADDR"`
	StateDir       string        `toml:"state_dir" envconfig:"MAGICTEXT_STATE_DIR"`
	Store          string        `toml:"store" envconfig:"MAGICTEXT_STORE"`
	DatabaseURL    string        `toml:"database_url" envconfig:"DATABASE_URL"`
	ArtifactPrefix string        `toml:"artifact_prefix" envconfig:"MAGICTEXT_ARTIFACT_PREFIX"`
	ArtifactTTL    time.Duration `toml:"artifact_ttl" envconfig:"MAGICTEXT_ARTIFACT_TTL"`

	Mode              string `toml:"mode" envconfig:"MAGICTEXT_MODE"`
	DeriveMinLength   *bool  `toml:"derive_min_length" envconfig:"MAGICTEXT_DERIVE_MIN_LENGTH"`
	NoRepeatNgramSize *int   `toml:"no_repeat_ngram_size" envconfig:"MAGICTEXT_NO_REPEAT_NGRAM_SIZE"`

	Engine        string        `toml:"engine" envconfig:"MAGICTEXT_ENGINE"`
	EngineBaseURL string        `toml:"engine_base_url" envconfig:"MAGICTEXT_ENGINE_BASE_URL"`
	OpenAIKey     string        `toml:"openai_api_key" envconfig:"OPENAI_API_KEY"`
	Model         string        `toml:"model" envconfig:"MAGICTEXT_MODEL"`
	Encoding      string        `toml:"encoding" envconfig:"MAGICTEXT_ENCODING"`
	EngineTimeout time.Duration `toml:"engine_timeout" envconfig:"MAGICTEXT_ENGINE_TIMEOUT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIAddr:        DefaultAPIAddr,
		StateDir:       DefaultStateDir,
		Store:          StoreSQL,
		ArtifactPrefix: artifact.DefaultPrefix,
		ArtifactTTL:    DefaultArtifactTTL,
		Mode:           string(models.ModeInstructional),
		Engine:         EngineOpenAI,
		Model:          DefaultModel,
		Encoding:       engine.DefaultEncoding,
	}
}

// Load builds the configuration. path may be empty, in which case no file is read.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			slog.Warn("config.Load: unknown keys in config file", "path", path, "keys", undecoded)
		}
		slog.Debug("config.Load: config file applied", "path", path)
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := models.ParseCompositionMode(c.Mode); !ok {
		errs = append(errs, fmt.Errorf("invalid mode %q: want instructional or inline", c.Mode))
	}
	switch strings.ToLower(c.Engine) {
	case EngineOpenAI, EngineOllama:
	default:
		errs = append(errs, fmt.Errorf("invalid engine %q: want openai or ollama", c.Engine))
	}
	switch strings.ToLower(c.Store) {
	case StoreSQL, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("invalid store %q: want sql or memory", c.Store))
	}
	if c.ArtifactTTL < 0 {
		errs = append(errs, fmt.Errorf("artifact TTL must not be negative"))
	}
	if c.EngineTimeout < 0 {
		errs = append(errs, fmt.Errorf("engine timeout must not be negative"))
	}
	if c.NoRepeatNgramSize != nil && *c.NoRepeatNgramSize < 0 {
		errs = append(errs, fmt.Errorf("no_repeat_ngram_size must not be negative"))
	}
	return errors.Join(errs...)
}

// CompositionMode returns the parsed mode, defaulting to instructional.
func (c *Config) CompositionMode() models.CompositionMode {
	mode, ok := models.ParseCompositionMode(c.Mode)
	if !ok {
		return models.ModeInstructional
	}
	return mode
}

// Policy returns the mode's default policy with any explicit overrides applied.
func (c *Config) Policy() request.Policy {
	p := request.DefaultPolicy(c.CompositionMode())
	if c.DeriveMinLength != nil {
		p.DeriveMinLength = *c.DeriveMinLength
	}
	if c.NoRepeatNgramSize != nil {
		p.NoRepeatNgramSize = *c.NoRepeatNgramSize
	}
	return p
}

// DSN returns DATABASE_URL, or the SQLite file inside the state directory.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return filepath.Join(c.StateDir, DefaultDBFileName)
}
