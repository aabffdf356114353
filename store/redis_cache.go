package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/glasscast-app/glasscast-backend/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "glasscast:cache:"

// cacheEnvelope wraps a payload with its capture timestamp. Entries carry no
// Redis TTL: expiry is evaluated against the envelope timestamp on read so
// expired data stays available for stale fallback.
type cacheEnvelope struct {
	Data       json.RawMessage `json:"data"`
	CapturedAt time.Time       `json:"captured_at"`
}

// RedisCache implements CacheStore on a Redis backend, the process-wide
// durable store that survives restarts.
type RedisCache struct {
	client *redis.Client
	ttls   TTLPolicy
	log    *zap.SugaredLogger

	// now is swappable for expiry tests.
	now func() time.Time
}

var _ CacheStore = (*RedisCache)(nil)

func NewRedisCache(client *redis.Client, ttls TTLPolicy) *RedisCache {
	return &RedisCache{
		client: client,
		ttls:   ttls,
		log:    logger.GetLogger(),
		now:    time.Now,
	}
}

func (c *RedisCache) key(cat Category, key string) string {
	k := cacheKeyPrefix + string(cat)
	if key != "" {
		k += ":" + key
	}
	return k
}

func (c *RedisCache) Get(ctx context.Context, cat Category, key string, dest interface{}) bool {
	env, ok := c.load(ctx, cat, key)
	if !ok {
		observeCacheRead(cat, "miss")
		return false
	}
	if c.now().Sub(env.CapturedAt) > c.ttls.For(cat) {
		observeCacheRead(cat, "expired")
		return false
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		c.log.Warnw("Cache payload decode failed, treating as miss", "category", cat, "key", key, "error", err)
		observeCacheRead(cat, "miss")
		return false
	}
	observeCacheRead(cat, "hit")
	return true
}

func (c *RedisCache) GetStale(ctx context.Context, cat Category, key string, dest interface{}) bool {
	env, ok := c.load(ctx, cat, key)
	if !ok {
		observeCacheRead(cat, "miss")
		return false
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		c.log.Warnw("Cache payload decode failed, treating as miss", "category", cat, "key", key, "error", err)
		observeCacheRead(cat, "miss")
		return false
	}
	observeCacheRead(cat, "stale")
	return true
}

func (c *RedisCache) Put(ctx context.Context, cat Category, key string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.log.Warnw("Cache payload encode failed, skipping write", "category", cat, "key", key, "error", err)
		return
	}
	env, err := json.Marshal(cacheEnvelope{Data: data, CapturedAt: c.now()})
	if err != nil {
		c.log.Warnw("Cache envelope encode failed, skipping write", "category", cat, "key", key, "error", err)
		return
	}
	// No expiration: stale entries must survive for fallback reads.
	if err := c.client.Set(ctx, c.key(cat, key), env, 0).Err(); err != nil {
		c.log.Warnw("Cache write failed", "category", cat, "key", key, "error", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, cat Category, keys ...string) {
	if len(keys) == 0 {
		if err := c.deletePrefix(ctx, cacheKeyPrefix+string(cat)); err != nil {
			c.log.Warnw("Cache invalidate failed", "category", cat, "error", err)
		}
		return
	}
	redisKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		redisKeys = append(redisKeys, c.key(cat, k))
	}
	if err := c.client.Del(ctx, redisKeys...).Err(); err != nil {
		c.log.Warnw("Cache invalidate failed", "category", cat, "keys", keys, "error", err)
	}
}

func (c *RedisCache) ClearAll(ctx context.Context) error {
	return c.deletePrefix(ctx, cacheKeyPrefix)
}

func (c *RedisCache) load(ctx context.Context, cat Category, key string) (cacheEnvelope, bool) {
	raw, err := c.client.Get(ctx, c.key(cat, key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warnw("Cache read failed, treating as miss", "category", cat, "key", key, "error", err)
		}
		return cacheEnvelope{}, false
	}
	var env cacheEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Warnw("Cache entry corrupt, treating as miss", "category", cat, "key", key, "error", err)
		return cacheEnvelope{}, false
	}
	return env, true
}

func (c *RedisCache) deletePrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
