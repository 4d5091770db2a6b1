package auth

import "time"

// Credential is a bearer token plus its absolute expiry, owned by Provider
// and shared with callers via short-lived read-only snapshots (spec.md §3).
type Credential struct {
	Value     string
	ExpiresAt time.Time
}

// freshEnough reports whether this credential has at least tolerance
// remaining before it expires.
func (c Credential) freshEnough(tolerance time.Duration) bool {
	return time.Until(c.ExpiresAt) > tolerance
}

// cacheKey identifies one cached token: the pair (endpoint, config) from
// spec.md §4.3. Config is included by value so two Providers configured
// identically against the same endpoint would (if they shared a cache
// backend) converge on the same entry; in practice each Provider owns its
// own in-process cache, so this mostly matters for the optional Redis
// backend.
type cacheKey struct {
	endpoint  string
	config    Config
}

func newCacheKey(endpoint string, cfg Config) cacheKey {
	return cacheKey{endpoint: endpoint, config: cfg}
}

// redisKey renders a cacheKey as a stable string for the Redis cache
// backend, which cannot key on a Go struct directly. The string is built
// from the endpoint, ClientID, TokenEndpoint and Scope only; configs that
// differ in other fields share one Redis entry.
func (k cacheKey) redisKey() string {
	return "bulkexport:token:" + k.endpoint + ":" + k.config.ClientID + ":" + k.config.TokenEndpoint + ":" + k.config.Scope
}
