package failover

import (
	"errors"
	"fmt"
	"time"
)

// ErrCacheNotFound is returned by [LoadCacheConfig] when the configuration
// has no cache with the requested name.
var ErrCacheNotFound = errors.New("failover: cache not found in config")

type (
	// Cache is the interface that cache adapters must implement. TTL is
	// passed per Set call; the underlying cache library handles expiration.
	Cache[K comparable, V any] interface {
		// Get retrieves a cached value by key. Returns the value and true if
		// found.
		Get(key K) (V, bool)
		// Set stores a value with the given TTL.
		Set(key K, value V, ttl time.Duration)
		// Delete removes a cached entry by key.
		Delete(key K)
	}

	// CacheConfig holds configuration for a cache instance.
	CacheConfig struct {
		// Options holds adapter-specific settings.
		Options map[string]any
		// TTL is the time-to-live for cached entries.
		TTL time.Duration
		// MaxSize is the maximum number of entries the cache can hold.
		MaxSize int
	}

	cacheConfigJSON struct {
		Options map[string]any `json:"options,omitempty" toml:"options"`
		TTL     string         `json:"ttl" toml:"ttl"`
		MaxSize int            `json:"max_size" toml:"max_size"`
	}
)

// LoadCacheConfig reads the "caches" section of the configuration file at
// path (same file and formats as [LoadConfig]) and returns the entry called
// name.
func LoadCacheConfig(path, name string) (CacheConfig, error) {
	cfg, err := readConfigFile(path)
	if err != nil {
		return CacheConfig{}, err
	}

	raw, ok := cfg.Caches[name]
	if !ok {
		return CacheConfig{}, fmt.Errorf("%w: %q", ErrCacheNotFound, name)
	}

	cc := CacheConfig{
		Options: raw.Options,
		MaxSize: raw.MaxSize,
	}

	if raw.TTL != "" {
		ttl, ttlErr := time.ParseDuration(raw.TTL)
		if ttlErr != nil {
			return CacheConfig{}, fmt.Errorf("failover: cache %q: ttl: %w", name, ttlErr)
		}

		cc.TTL = ttl
	}

	return cc, nil
}
