package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/smsguard/internal/model"
)

// Cache is a byte-level key/value store with per-entry expiry
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

const keyPrefix = "smsguard:v1:rep:"

// Key derives the storage key for a normalized URL
func Key(normalizedURL string) string {
	hash := sha256.Sum256([]byte(normalizedURL))
	return keyPrefix + hex.EncodeToString(hash[:])
}

// New builds the cache described by cfg: memory only, or memory over disk
// when a directory is configured. It returns nil when caching is disabled.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.DiskDir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.DiskDir, cfg.DiskTTL)
}
