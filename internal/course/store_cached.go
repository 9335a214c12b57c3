package course

import (
	"context"
	"log/slog"
	"time"
)

// JSONCache is the subset of cache.Cache used by CachedStore.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CachedStore serves Get from a cache in front of another Store. Cache
// failures are logged and fall through to the backing store.
type CachedStore struct {
	next  Store
	cache JSONCache
	ttl   time.Duration
	key   func(id string) string
}

// NewCachedStore wraps next with a read-through cache. key maps a course id
// to its cache key.
func NewCachedStore(next Store, cache JSONCache, ttl time.Duration, key func(id string) string) *CachedStore {
	if key == nil {
		key = func(id string) string { return "course:" + id }
	}
	return &CachedStore{next: next, cache: cache, ttl: ttl, key: key}
}

func (s *CachedStore) Save(ctx context.Context, c *Course) error {
	if err := s.next.Save(ctx, c); err != nil {
		return err
	}
	if err := s.cache.SetJSON(ctx, s.key(c.ID), c, s.ttl); err != nil {
		slog.Warn("course cache write failed", "course_id", c.ID, "error", err)
		// A stale entry must not outlive a successful write.
		_ = s.cache.Delete(ctx, s.key(c.ID))
	}
	return nil
}

func (s *CachedStore) Get(ctx context.Context, id string) (*Course, error) {
	var cached Course
	hit, err := s.cache.GetJSON(ctx, s.key(id), &cached)
	if err != nil {
		slog.Warn("course cache read failed", "course_id", id, "error", err)
	}
	if hit {
		return &cached, nil
	}

	c, err := s.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, s.key(id), c, s.ttl); err != nil {
		slog.Warn("course cache fill failed", "course_id", id, "error", err)
	}
	return c, nil
}

func (s *CachedStore) List(ctx context.Context, ownerID string, limit int) ([]Summary, error) {
	return s.next.List(ctx, ownerID, limit)
}
