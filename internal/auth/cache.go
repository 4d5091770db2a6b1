package auth

import "context"

// cacheBackend stores the single cached Credential for a cacheKey. The
// default backend is in-process; rediscache.go supplies an optional
// distributed implementation so multiple client invocations share one
// token (SPEC_FULL.md §2).
type cacheBackend interface {
	get(ctx context.Context, key cacheKey) (Credential, bool)
	set(ctx context.Context, key cacheKey, cred Credential)
}

// memoryCache is the default backend: an in-process map holding one entry
// per cacheKey, guarded by Provider's own mutex (it is never accessed
// concurrently with itself, so it needs no lock of its own).
type memoryCache struct {
	entries map[cacheKey]Credential
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[cacheKey]Credential)}
}

func (c *memoryCache) get(_ context.Context, key cacheKey) (Credential, bool) {
	cred, ok := c.entries[key]
	return cred, ok
}

func (c *memoryCache) set(_ context.Context, key cacheKey, cred Credential) {
	c.entries[key] = cred
}
