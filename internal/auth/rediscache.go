package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is an optional distributed token-cache backend: when a long
// export pipeline runs several bulkexport invocations concurrently against
// the same FHIR server, they can share one cached token instead of each
// re-authenticating. Opt-in via Provider.WithCache; the default remains the
// in-process memoryCache (spec.md's own described behavior).
type RedisCache struct {
	client *redis.Client
	ttlPad time.Duration
}

// NewRedisCache wraps an existing Redis client. ttlPad pads the computed
// Redis TTL beyond the credential's own expiry so a slightly stale read
// still carries the (now-expired) credential rather than a cache miss —
// the Provider re-validates freshness itself on every read regardless.
func NewRedisCache(client *redis.Client, ttlPad time.Duration) *RedisCache {
	return &RedisCache{client: client, ttlPad: ttlPad}
}

type redisCredential struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c *RedisCache) get(ctx context.Context, key cacheKey) (Credential, bool) {
	raw, err := c.client.Get(ctx, key.redisKey()).Bytes()
	if err != nil {
		return Credential{}, false
	}
	var rc redisCredential
	if err := json.Unmarshal(raw, &rc); err != nil {
		return Credential{}, false
	}
	return Credential{Value: rc.Value, ExpiresAt: rc.ExpiresAt}, true
}

func (c *RedisCache) set(ctx context.Context, key cacheKey, cred Credential) {
	rc := redisCredential{Value: cred.Value, ExpiresAt: cred.ExpiresAt}
	raw, err := json.Marshal(rc)
	if err != nil {
		return
	}
	ttl := time.Until(cred.ExpiresAt) + c.ttlPad
	if ttl <= 0 {
		return
	}
	_ = c.client.Set(ctx, key.redisKey(), raw, ttl).Err()
}

var _ cacheBackend = (*RedisCache)(nil)
