package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BTreeMap/MagicText/internal/models"
	"github.com/BTreeMap/MagicText/internal/request"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "magictext.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, models.ModeInstructional, cfg.CompositionMode())
	assert.Equal(t, request.Policy{DeriveMinLength: true, NoRepeatNgramSize: 3}, cfg.Policy())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
mode = "inline"
model = "gpt2-medium"
artifact_ttl = "10m"
engine_timeout = "45s"
no_repeat_ngram_size = 2
`)
	t.Setenv("MAGICTEXT_MODEL", "gpt2-large")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, models.ModeInline, cfg.CompositionMode())
	assert.Equal(t, "gpt2-large", cfg.Model, "environment overrides the file")
	assert.Equal(t, 10*time.Minute, cfg.ArtifactTTL)
	assert.Equal(t, 45*time.Second, cfg.EngineTimeout)
	assert.Equal(t, request.Policy{DeriveMinLength: false, NoRepeatNgramSize: 2}, cfg.Policy())
}

func TestLoadEnvPolicyOverrides(t *testing.T) {
	t.Setenv("MAGICTEXT_MODE", "inline-style")
	t.Setenv("MAGICTEXT_DERIVE_MIN_LENGTH", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	p := cfg.Policy()
	assert.True(t, p.DeriveMinLength)
	assert.Zero(t, p.NoRepeatNgramSize)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"mode", "MAGICTEXT_MODE", "shouting"},
		{"engine", "MAGICTEXT_ENGINE", "llamacpp"},
		{"store", "MAGICTEXT_STORE", "redis"},
		{"ttl", "MAGICTEXT_ARTIFACT_TTL", "-1m"},
		{"duration syntax", "MAGICTEXT_ENGINE_TIMEOUT", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	cfg := Default()
	cfg.StateDir = "/tmp/mt"
	assert.Equal(t, "/tmp/mt/magictext.db", cfg.DSN())

	cfg.DatabaseURL = "postgres://localhost/magictext"
	assert.Equal(t, "postgres://localhost/magictext", cfg.DSN())
}
