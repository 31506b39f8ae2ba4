/*
Copyright The Ferry Authors.
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/maypok86/otter"

	"github.com/ferry-project/ferry-go/errdef"
	"github.com/ferry-project/ferry-go/internal/syncutil"
)

// DefaultCache is the sharable cache used by DefaultClient.
var DefaultCache Cache = NewCache()

// Cache caches the auth-scheme and auth-token for authenticating a registry.
// The cache follows the read-through mode, where the cache first, and then the
// fetch function on cache miss.
type Cache interface {
	// GetScheme returns the auth-scheme part cached for the given registry.
	// Returns errdef.ErrNotFound if the registry is not cached.
	GetScheme(ctx context.Context, registry string) (Scheme, error)

	// GetToken returns the auth-token part cached for the given registry of
	// the given scheme. The key is the scope key for bearer tokens, and the
	// empty string for basic tokens.
	// Returns errdef.ErrNotFound if the token is not cached or has expired.
	GetToken(ctx context.Context, registry string, scheme Scheme, key string) (string, error)

	// Set fetches the token using the given fetch function, and caches it
	// under the given scheme and key. Concurrent Set calls for the same
	// (registry, scheme, key) share a single fetch.
	// Setting an entry with a different scheme replaces the previous entry
	// for the registry; the schemes are never merged.
	Set(ctx context.Context, registry string, scheme Scheme, key string, fetch func(context.Context) (string, error)) (string, error)
}

// cacheKeyPrefix namespaces the cache keys, so that one cache value space can
// be shared with entries of other origins without collision.
const cacheKeyPrefix = "ORAS_AUTH_"

// tenantContextKey is the context key for the tenant ID partitioning the
// cache.
type tenantContextKey struct{}

// WithTenant returns a context with the tenant ID used to partition the token
// cache. Requests carrying different tenant IDs never share cached tokens,
// even when they target the same registry.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenantID)
}

// cacheKey returns the cache key for the given registry, partitioned by the
// tenant ID in the context, if any. The key format is
// "ORAS_AUTH_" [tenantID "|"] registry.
func cacheKey(ctx context.Context, registry string) string {
	if tenantID, ok := ctx.Value(tenantContextKey{}).(string); ok && tenantID != "" {
		return cacheKeyPrefix + tenantID + "|" + registry
	}
	return cacheKeyPrefix + registry
}

// cacheEntry is a cached auth state of a single registry: the negotiated
// scheme and the tokens fetched under that scheme.
type cacheEntry struct {
	scheme Scheme
	tokens sync.Map // map[string]*tokenEntry, keyed by scope key
}

// concurrentCache is a cache suitable for concurrent invocation.
type concurrentCache struct {
	status sync.Map // map[string]*syncutil.Once[string]

	lock  sync.RWMutex
	cache map[string]*cacheEntry
}

// NewCache creates a new go-routine safe cache instance.
func NewCache() Cache {
	return &concurrentCache{
		cache: make(map[string]*cacheEntry),
	}
}

// GetScheme returns the auth-scheme part cached for the given registry.
func (cc *concurrentCache) GetScheme(ctx context.Context, registry string) (Scheme, error) {
	cc.lock.RLock()
	entry, ok := cc.cache[cacheKey(ctx, registry)]
	cc.lock.RUnlock()
	if !ok {
		return SchemeUnknown, errdef.ErrNotFound
	}
	return entry.scheme, nil
}

// GetToken returns the auth-token part cached for the given registry of the
// given scheme. Expired tokens are evicted on access.
func (cc *concurrentCache) GetToken(ctx context.Context, registry string, scheme Scheme, key string) (string, error) {
	cc.lock.RLock()
	entry, ok := cc.cache[cacheKey(ctx, registry)]
	cc.lock.RUnlock()
	if !ok || entry.scheme != scheme {
		return "", errdef.ErrNotFound
	}
	value, ok := entry.tokens.Load(key)
	if !ok {
		return "", errdef.ErrNotFound
	}
	token := value.(*tokenEntry)
	if token.isExpired() {
		entry.tokens.CompareAndDelete(key, value)
		return "", errdef.ErrNotFound
	}
	return token.token, nil
}

// Set fetches and caches a token, deduplicating concurrent fetches of the
// same (registry, scheme, key).
func (cc *concurrentCache) Set(ctx context.Context, registry string, scheme Scheme, key string, fetch func(context.Context) (string, error)) (string, error) {
	switch scheme {
	case SchemeBasic, SchemeBearer:
	default:
		return "", fmt.Errorf("unknown scheme: %v", scheme)
	}

	statusKey := cacheKey(ctx, registry) + " " + scheme.String() + " " + key
	statusValue, _ := cc.status.LoadOrStore(statusKey, syncutil.NewOnce[string]())
	fetchOnce := statusValue.(*syncutil.Once[string])
	fetchedFirst, token, err := fetchOnce.Do(ctx, func() (string, error) {
		return fetch(ctx)
	})
	if fetchedFirst {
		cc.status.Delete(statusKey)
	}
	if err != nil {
		return "", err
	}
	if !fetchedFirst {
		return token, nil
	}

	k := cacheKey(ctx, registry)
	cc.lock.Lock()
	entry, ok := cc.cache[k]
	if !ok || entry.scheme != scheme {
		// a scheme change invalidates all tokens cached for the registry
		entry = &cacheEntry{scheme: scheme}
		cc.cache[k] = entry
	}
	cc.lock.Unlock()
	entry.tokens.Store(key, newTokenEntry(token))

	return token, nil
}

// boundedCache is a Cache with a fixed capacity, evicting the least recently
// used registry entries when full.
type boundedCache struct {
	status sync.Map // map[string]*syncutil.Once[string]
	cache  otter.Cache[string, *cacheEntry]
}

// defaultBoundedCacheCapacity is the number of registry entries a bounded
// cache holds when no capacity is given.
const defaultBoundedCacheCapacity = 4096

// NewBoundedCache creates a cache whose registry entries are bounded by the
// given capacity and evicted in least-recently-used order. If capacity is not
// positive, a default capacity is used.
func NewBoundedCache(capacity int) Cache {
	if capacity <= 0 {
		capacity = defaultBoundedCacheCapacity
	}
	cache, err := otter.MustBuilder[string, *cacheEntry](capacity).Build()
	if err != nil {
		// the builder only fails on invalid options, which are all fixed here
		panic(err)
	}
	return &boundedCache{
		cache: cache,
	}
}

func (bc *boundedCache) GetScheme(ctx context.Context, registry string) (Scheme, error) {
	entry, ok := bc.cache.Get(cacheKey(ctx, registry))
	if !ok {
		return SchemeUnknown, errdef.ErrNotFound
	}
	return entry.scheme, nil
}

func (bc *boundedCache) GetToken(ctx context.Context, registry string, scheme Scheme, key string) (string, error) {
	entry, ok := bc.cache.Get(cacheKey(ctx, registry))
	if !ok || entry.scheme != scheme {
		return "", errdef.ErrNotFound
	}
	value, ok := entry.tokens.Load(key)
	if !ok {
		return "", errdef.ErrNotFound
	}
	token := value.(*tokenEntry)
	if token.isExpired() {
		entry.tokens.CompareAndDelete(key, value)
		return "", errdef.ErrNotFound
	}
	return token.token, nil
}

func (bc *boundedCache) Set(ctx context.Context, registry string, scheme Scheme, key string, fetch func(context.Context) (string, error)) (string, error) {
	switch scheme {
	case SchemeBasic, SchemeBearer:
	default:
		return "", fmt.Errorf("unknown scheme: %v", scheme)
	}

	statusKey := cacheKey(ctx, registry) + " " + scheme.String() + " " + key
	statusValue, _ := bc.status.LoadOrStore(statusKey, syncutil.NewOnce[string]())
	fetchOnce := statusValue.(*syncutil.Once[string])
	fetchedFirst, token, err := fetchOnce.Do(ctx, func() (string, error) {
		return fetch(ctx)
	})
	if fetchedFirst {
		bc.status.Delete(statusKey)
	}
	if err != nil {
		return "", err
	}
	if !fetchedFirst {
		return token, nil
	}

	k := cacheKey(ctx, registry)
	entry, ok := bc.cache.Get(k)
	if !ok || entry.scheme != scheme {
		entry = &cacheEntry{scheme: scheme}
		bc.cache.Set(k, entry)
	}
	entry.tokens.Store(key, newTokenEntry(token))

	return token, nil
}

// noCache is a cache implementation that does not do cache at all.
type noCache struct{}

func (noCache) GetScheme(ctx context.Context, registry string) (Scheme, error) {
	return SchemeUnknown, errdef.ErrNotFound
}

func (noCache) GetToken(ctx context.Context, registry string, scheme Scheme, key string) (string, error) {
	return "", errdef.ErrNotFound
}

func (noCache) Set(ctx context.Context, registry string, scheme Scheme, key string, fetch func(context.Context) (string, error)) (string, error) {
	return fetch(ctx)
}
