package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"whereismypet/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	RecentPostsKeyPrefix = "posts:recent:%d"
	recentPostsPattern   = "posts:recent:*"
)

// RecentPostsTTL bounds how stale the public catalog page can be.
const RecentPostsTTL = 30 * time.Second

func RecentPostsKey(limit int) string {
	return fmt.Sprintf(RecentPostsKeyPrefix, limit)
}

// Store is a JSON cache over Redis. A Store with a nil client is a valid
// pass-through: reads always miss and writes are dropped.
type Store struct {
	client *redis.Client
}

// New wraps client, which may be nil.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Enabled reports whether a Redis client is attached.
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first, on miss it calls fetch (which must populate dest),
// then stores the result with ttl. Cache failures never fail the read.
func (s *Store) Aside(ctx context.Context, family, key string, dest any, ttl time.Duration, fetch func() error) error {
	ctx, span := observability.GetTraceLayer().TraceRedisOperation(ctx, "aside."+family)
	defer span.End()

	found, err := s.GetJSON(ctx, key, dest)
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	}
	if found {
		observability.CacheLookups.WithLabelValues(family, "hit").Inc()
		return nil
	}
	observability.CacheLookups.WithLabelValues(family, "miss").Inc()

	if err := fetch(); err != nil {
		return err
	}

	if err := s.SetJSON(ctx, key, dest, ttl); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return nil
}

// Invalidate deletes the given keys.
func (s *Store) Invalidate(ctx context.Context, keys ...string) {
	if !s.Enabled() || len(keys) == 0 {
		return
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "cache invalidate failed", "keys", keys, "error", err)
	}
}

// InvalidateRecent drops every cached recent-posts page regardless of limit.
func (s *Store) InvalidateRecent(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	var keys []string
	iter := s.client.Scan(ctx, 0, recentPostsPattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "cache scan failed", "pattern", recentPostsPattern, "error", err)
		return
	}
	s.Invalidate(ctx, keys...)
}
