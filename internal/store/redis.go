package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/moneyrush/round-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and refresh the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
	key     string
	log     *slog.Logger
}

// NewCachedStore creates a cached wrapper around a primary store. A nil
// logger means slog.Default().
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration, gameKey string, logger *slog.Logger) *CachedStore {
	if gameKey == "" {
		gameKey = DefaultGameKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
		key:     snapshotKey(gameKey),
		log:     logger,
	}
}

// Save writes to the primary, then refreshes the cached copy. A cache write
// failure drops the key so a stale document is never served.
func (s *CachedStore) Save(ctx context.Context, snap *model.Snapshot) error {
	if err := s.primary.Save(ctx, snap); err != nil {
		return err
	}
	s.cache(ctx, snap)
	return nil
}

// Load checks the cache first.
func (s *CachedStore) Load(ctx context.Context) (*model.Snapshot, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if err == nil {
		var snap model.Snapshot
		if json.Unmarshal(data, &snap) == nil {
			return &snap, nil
		}
	}

	// Cache miss: read from primary.
	snap, err := s.primary.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, snap)
	return snap, nil
}

func (s *CachedStore) cache(ctx context.Context, snap *model.Snapshot) {
	data, err := json.Marshal(snap)
	if err == nil {
		err = s.rdb.Set(ctx, s.key, data, s.ttl).Err()
	}
	if err != nil {
		s.log.WarnContext(ctx, "snapshot cache refresh failed", "key", s.key, "error", err)
		s.rdb.Del(ctx, s.key)
	}
}

func snapshotKey(game string) string { return fmt.Sprintf("moneyrush:snapshot:%s", game) }
