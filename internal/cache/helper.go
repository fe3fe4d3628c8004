package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ravencube/internal/middleware"
	"ravencube/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	PostKeyPrefix    = "post:%d"
	ProfileKeyPrefix = "profile:%s"
)

const (
	PostTTL    = 30 * time.Minute
	ProfileTTL = 5 * time.Minute
)

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func ProfileKey(username string) string {
	return fmt.Sprintf(ProfileKeyPrefix, strings.ToLower(username))
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil
	}
	s, err := rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, rdb *redis.Client, key string, v any, ttl time.Duration) error {
	if rdb == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first, on miss it calls fetch (which must populate dest),
// then stores the result with ttl. Cache failures degrade to a plain fetch.
func Aside(ctx context.Context, rdb *redis.Client, key string, dest any, ttl time.Duration, fetch func() error) error {
	keyspace := keyspaceOf(key)

	found, err := GetJSON(ctx, rdb, key, dest)
	switch {
	case err != nil:
		observability.CacheLookups.WithLabelValues(keyspace, "error").Inc()
		middleware.Logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	case found:
		observability.CacheLookups.WithLabelValues(keyspace, "hit").Inc()
		return nil
	default:
		observability.CacheLookups.WithLabelValues(keyspace, "miss").Inc()
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := SetJSON(ctx, rdb, key, dest, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return nil
}

// Invalidate drops keys; failures only cost staleness until the TTL.
func Invalidate(ctx context.Context, rdb *redis.Client, keys ...string) {
	if rdb == nil || len(keys) == 0 {
		return
	}
	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed", "keys", keys, "error", err)
	}
}

func keyspaceOf(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
