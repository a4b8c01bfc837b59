package reputation

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ppiankov/smsguard/internal/cache"
	"github.com/ppiankov/smsguard/internal/model"
)

// CachedLookuper serves repeated URLs from a cache. Only clean lookups
// are stored; unsafe results live as long as the service's cacheDuration.
type CachedLookuper struct {
	inner  Lookuper
	store  cache.Cache
	logger *slog.Logger
}

// NewCachedLookuper wraps inner with store
func NewCachedLookuper(inner Lookuper, store cache.Cache, logger *slog.Logger) *CachedLookuper {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedLookuper{inner: inner, store: store, logger: logger}
}

func (c *CachedLookuper) Lookup(ctx context.Context, urls []string) map[string]model.ReputationResult {
	results := make(map[string]model.ReputationResult, len(urls))
	var misses []string

	for _, u := range urls {
		if r, ok := c.get(u); ok {
			results[u] = r
			continue
		}
		misses = append(misses, u)
	}

	if len(misses) == 0 {
		c.logger.Debug("reputation cache hit for all URLs", "urls", len(urls))
		return results
	}

	for u, r := range c.inner.Lookup(ctx, misses) {
		results[u] = r
		if r.Error == model.ErrorNone {
			c.put(u, r)
		}
	}
	return results
}

func (c *CachedLookuper) get(rawURL string) (model.ReputationResult, bool) {
	normalized, ok := normalizeLookupURL(rawURL)
	if !ok {
		return model.ReputationResult{}, false
	}

	data, found := c.store.Get(cache.Key(normalized))
	if !found {
		return model.ReputationResult{}, false
	}

	var r model.ReputationResult
	if err := json.Unmarshal(data, &r); err != nil {
		return model.ReputationResult{}, false
	}
	r.Via = model.ViaCache
	return r, true
}

func (c *CachedLookuper) put(rawURL string, r model.ReputationResult) {
	normalized, ok := normalizeLookupURL(rawURL)
	if !ok {
		return
	}

	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := c.store.Set(cache.Key(normalized), data, cacheTTL(r)); err != nil {
		c.logger.Debug("failed to cache reputation result", "url", normalized, "error", err)
	}
}

// cacheTTL honors the service's cacheDuration ("300s"); zero means the store default
func cacheTTL(r model.ReputationResult) time.Duration {
	if r.CacheDuration == "" {
		return 0
	}
	d, err := time.ParseDuration(r.CacheDuration)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}
