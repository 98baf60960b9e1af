// Package store keeps the single most recent generated artifact.
//
// Every backend holds one slot: saving replaces whatever was there. An
// optional TTL makes the artifact unavailable after it expires.
package store

import (
	"errors"
	"strings"
	"time"

	"github.com/BTreeMap/MagicText/internal/models"
)

// ErrNoArtifact is returned when nothing has been saved or the artifact expired.
var ErrNoArtifact = errors.New("no artifact available")

// Store holds the latest artifact.
type Store interface {
	SaveArtifact(a models.Artifact) error
	LatestArtifact() (models.Artifact, error)
	Close() error
}

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN string
	// TTL is how long an artifact stays downloadable; zero keeps it until replaced.
	TTL time.Duration
}

// Option defines a configuration option for store implementations.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithTTL sets the artifact time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.TTL = ttl }
}

// DetectDSNType returns "postgres" for PostgreSQL URLs or key/value
// connection strings and "sqlite3" for everything else.
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}

// expiresAt returns the expiry for an artifact created at t, or nil when ttl is zero.
func expiresAt(t time.Time, ttl time.Duration) *time.Time {
	if ttl <= 0 {
		return nil
	}
	exp := t.Add(ttl)
	return &exp
}
