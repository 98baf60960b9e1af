package store

import (
	"log/slog"

	"github.com/jellydator/ttlcache/v3"

	"github.com/BTreeMap/MagicText/internal/models"
)

const latestKey = "latest"

// InMemoryStore keeps the latest artifact in a ttlcache entry.
type InMemoryStore struct {
	cache *ttlcache.Cache[string, models.Artifact]
}

// NewInMemoryStore creates an in-memory store. Only WithTTL is honoured.
func NewInMemoryStore(opts ...Option) *InMemoryStore {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	c := ttlcache.New[string, models.Artifact](
		ttlcache.WithTTL[string, models.Artifact](cfg.TTL),
		ttlcache.WithDisableTouchOnHit[string, models.Artifact](),
		ttlcache.WithCapacity[string, models.Artifact](1),
	)
	go c.Start()
	slog.Debug("InMemoryStore.New: created", "ttl", cfg.TTL)
	return &InMemoryStore{cache: c}
}

// SaveArtifact replaces the latest artifact.
func (s *InMemoryStore) SaveArtifact(a models.Artifact) error {
	s.cache.Set(latestKey, a, ttlcache.DefaultTTL)
	slog.Debug("InMemoryStore.SaveArtifact: saved", "name", a.Name, "result_id", a.ResultID)
	return nil
}

// LatestArtifact returns the latest artifact or ErrNoArtifact.
func (s *InMemoryStore) LatestArtifact() (models.Artifact, error) {
	item := s.cache.Get(latestKey)
	if item == nil || item.IsExpired() {
		return models.Artifact{}, ErrNoArtifact
	}
	return item.Value(), nil
}

// Close stops the expiry loop.
func (s *InMemoryStore) Close() error {
	s.cache.Stop()
	return nil
}
