package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/BTreeMap/MagicText/internal/models"
)

// DefaultDirPermissions is used when creating the database directory.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore keeps the latest artifact in a single-row SQLite table.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLiteStore opens (creating if needed) the SQLite database at the DSN path.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.New: invoked", "dsn_set", cfg.DSN != "", "ttl", cfg.TTL)

	if cfg.DSN == "" {
		slog.Error("SQLiteStore.New: DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("SQLiteStore.New: failed to create database directory", "dir", dir, "error", err)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("SQLiteStore.New: failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLiteStore.New: ping failed", "error", err)
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("SQLiteStore.New: failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore.New: migrations applied", "dir", dir)

	return &SQLiteStore{db: db, ttl: cfg.TTL}, nil
}

// SaveArtifact upserts the single artifact row.
func (s *SQLiteStore) SaveArtifact(a models.Artifact) error {
	_, err := s.db.Exec(`INSERT INTO latest_artifact (id, name, content, result_id, created_at, expires_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, content = excluded.content,
			result_id = excluded.result_id, created_at = excluded.created_at, expires_at = excluded.expires_at`,
		a.Name, a.Content, a.ResultID, a.CreatedAt.UTC(), nullTime(expiresAt(a.CreatedAt.UTC(), s.ttl)))
	if err != nil {
		slog.Error("SQLiteStore.SaveArtifact: upsert failed", "name", a.Name, "error", err)
		return fmt.Errorf("failed to save artifact %s: %w", a.Name, err)
	}
	slog.Debug("SQLiteStore.SaveArtifact: saved", "name", a.Name, "result_id", a.ResultID)
	return nil
}

// LatestArtifact returns the stored artifact unless it is missing or expired.
func (s *SQLiteStore) LatestArtifact() (models.Artifact, error) {
	row := s.db.QueryRow(`SELECT name, content, result_id, created_at, expires_at FROM latest_artifact WHERE id = 1`)
	return scanArtifact(row, time.Now())
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// scanArtifact reads one latest_artifact row and applies expiry against now.
func scanArtifact(row *sql.Row, now time.Time) (models.Artifact, error) {
	var a models.Artifact
	var expires sql.NullTime
	err := row.Scan(&a.Name, &a.Content, &a.ResultID, &a.CreatedAt, &expires)
	if err == sql.ErrNoRows {
		return models.Artifact{}, ErrNoArtifact
	}
	if err != nil {
		slog.Error("store.scanArtifact: scan failed", "error", err)
		return models.Artifact{}, fmt.Errorf("failed to read artifact: %w", err)
	}
	if expires.Valid && !now.Before(expires.Time) {
		slog.Debug("store.scanArtifact: artifact expired", "name", a.Name, "expires_at", expires.Time)
		return models.Artifact{}, ErrNoArtifact
	}
	return a, nil
}
