package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/BTreeMap/MagicText/internal/models"
)

// Connection pool limits. One row is all this store ever touches.
const (
	DefaultMaxOpenConns    = 4
	DefaultMaxIdleConns    = 2
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore keeps the latest artifact in a single-row PostgreSQL table.
type PostgresStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewPostgresStore connects to PostgreSQL and applies migrations.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.New: invoked", "dsn_set", cfg.DSN != "", "ttl", cfg.TTL)
	if cfg.DSN == "" {
		slog.Error("PostgresStore.New: DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("PostgresStore.New: failed to open connection", "error", err)
		return nil, err
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("PostgresStore.New: ping failed", "error", err)
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("PostgresStore.New: failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore.New: migrations applied")
	return &PostgresStore{db: db, ttl: cfg.TTL}, nil
}

// SaveArtifact upserts the single artifact row.
func (s *PostgresStore) SaveArtifact(a models.Artifact) error {
	_, err := s.db.Exec(`INSERT INTO latest_artifact (id, name, content, result_id, created_at, expires_at)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, content = EXCLUDED.content,
			result_id = EXCLUDED.result_id, created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at`,
		a.Name, a.Content, a.ResultID, a.CreatedAt, nullTime(expiresAt(a.CreatedAt, s.ttl)))
	if err != nil {
		slog.Error("PostgresStore.SaveArtifact: upsert failed", "name", a.Name, "error", err)
		return fmt.Errorf("failed to save artifact %s: %w", a.Name, err)
	}
	slog.Debug("PostgresStore.SaveArtifact: saved", "name", a.Name, "result_id", a.ResultID)
	return nil
}

// LatestArtifact returns the stored artifact unless it is missing or expired.
func (s *PostgresStore) LatestArtifact() (models.Artifact, error) {
	row := s.db.QueryRow(`SELECT name, content, result_id, created_at, expires_at FROM latest_artifact WHERE id = 1`)
	return scanArtifact(row, time.Now())
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
