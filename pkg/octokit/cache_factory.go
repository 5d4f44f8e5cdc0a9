package octokit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fivetwenty-io/octokit/internal/constants"
)

// CacheType selects the ETag cache backend.
type CacheType string

const (
	// CacheTypeMemory keeps responses in process.
	CacheTypeMemory CacheType = "memory"
	// CacheTypeNATS shares responses through a JetStream key-value bucket.
	CacheTypeNATS CacheType = "nats"
	// CacheTypeTiered puts a memory cache in front of NATS.
	CacheTypeTiered CacheType = "tiered"
	// CacheTypeNone disables caching.
	CacheTypeNone CacheType = "none"
)

// Static errors for err113 compliance.
var (
	ErrNATSConfigRequired     = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCacheType   = errors.New("unsupported cache type")
	ErrInvalidCleanupInterval = errors.New("invalid cleanup interval")
	ErrCacheDisabled          = errors.New("cache disabled")
	ErrKeyNotFoundInAnyCache  = errors.New("key not found in any cache")
)

// ParseCacheType maps a configuration value to a CacheType. The empty string
// means CacheTypeNone.
func ParseCacheType(value string) (CacheType, error) {
	switch t := CacheType(strings.ToLower(strings.TrimSpace(value))); t {
	case "":
		return CacheTypeNone, nil
	case CacheTypeMemory, CacheTypeNATS, CacheTypeTiered, CacheTypeNone:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedCacheType, value)
	}
}

// CacheConfig describes the ETag cache a client should use.
type CacheConfig struct {
	Type CacheType
	// MaxEntries bounds the memory backend, or the memory tier of a tiered
	// cache. Zero uses the default size.
	MaxEntries int
	// CleanupInterval sweeps expired memory entries in the background until
	// the context given to NewCacheFromConfig is done. Zero disables it.
	CleanupInterval time.Duration
	// NATS is required by the nats and tiered backends.
	NATS *NATSKVConfig
}

// DefaultCacheConfig returns a swept memory cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type:            CacheTypeMemory,
		MaxEntries:      constants.DefaultCacheSize,
		CleanupInterval: constants.DefaultCacheCleanupInterval,
	}
}

// NewCacheFromConfig builds the configured backend. ctx bounds the memory
// sweeper; cancel it when the client is no longer used.
func NewCacheFromConfig(ctx context.Context, config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	switch config.Type {
	case CacheTypeMemory:
		local, err := newSweptMemoryCache(ctx, config)
		if err != nil {
			return nil, err
		}

		return local, nil

	case CacheTypeNATS:
		shared, err := newNATSCache(config)
		if err != nil {
			return nil, err
		}

		return shared, nil

	case CacheTypeTiered:
		shared, err := newNATSCache(config)
		if err != nil {
			return nil, err
		}

		local, err := newSweptMemoryCache(ctx, config)
		if err != nil {
			shared.Close()

			return nil, err
		}

		return NewCacheChain(local, shared), nil

	case CacheTypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

func newSweptMemoryCache(ctx context.Context, config *CacheConfig) (*MemoryCache, error) {
	if config.CleanupInterval < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCleanupInterval, config.CleanupInterval)
	}

	cache := NewMemoryCache(config.MaxEntries)

	if config.CleanupInterval > 0 {
		StartCleanup(ctx, cache, config.CleanupInterval)
	}

	return cache, nil
}

func newNATSCache(config *CacheConfig) (*NATSKVCache, error) {
	if config.NATS == nil {
		return nil, ErrNATSConfigRequired
	}

	return NewNATSKVCache(config.NATS)
}

// StartCleanup sweeps expired entries from cache every interval until ctx is
// done.
func StartCleanup(ctx context.Context, cache *MemoryCache, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cache.Cleanup()
			}
		}
	}()
}

// CloseCache releases connections held by cache, if any.
func CloseCache(cache Cache) {
	switch c := cache.(type) {
	case *NATSKVCache:
		c.Close()
	case *CacheChain:
		for _, tier := range c.caches {
			CloseCache(tier)
		}
	}
}

// NoOpCache never stores anything; every request goes to GitHub.
type NoOpCache struct{}

// NewNoOpCache returns a disabled cache.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always reports ErrCacheDisabled.
func (*NoOpCache) Get(context.Context, string) (*CacheEntry, error) { return nil, ErrCacheDisabled }

// Set discards entry.
func (*NoOpCache) Set(context.Context, string, *CacheEntry) error { return nil }

// Delete is a no-op.
func (*NoOpCache) Delete(context.Context, string) error { return nil }

// Clear is a no-op.
func (*NoOpCache) Clear(context.Context) error { return nil }

// Has always reports false.
func (*NoOpCache) Has(context.Context, string) bool { return false }

// CacheChain looks entries up fastest tier first. A hit in a slower tier is
// copied into the faster ones so the next revalidation stays local.
type CacheChain struct {
	caches []Cache
}

// NewCacheChain orders caches from fastest to slowest.
func NewCacheChain(caches ...Cache) *CacheChain {
	return &CacheChain{caches: caches}
}

// Get returns the first tier's hit and promotes it.
func (c *CacheChain) Get(ctx context.Context, key string) (*CacheEntry, error) {
	for i, tier := range c.caches {
		entry, err := tier.Get(ctx, key)
		if err != nil {
			continue
		}

		for _, faster := range c.caches[:i] {
			_ = faster.Set(ctx, key, entry)
		}

		return entry, nil
	}

	return nil, ErrKeyNotFoundInAnyCache
}

// Set writes entry to every tier.
func (c *CacheChain) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return c.each(func(tier Cache) error { return tier.Set(ctx, key, entry) })
}

// Delete removes key from every tier.
func (c *CacheChain) Delete(ctx context.Context, key string) error {
	return c.each(func(tier Cache) error { return tier.Delete(ctx, key) })
}

// Clear empties every tier.
func (c *CacheChain) Clear(ctx context.Context) error {
	return c.each(func(tier Cache) error { return tier.Clear(ctx) })
}

// Has reports whether any tier holds key.
func (c *CacheChain) Has(ctx context.Context, key string) bool {
	for _, tier := range c.caches {
		if tier.Has(ctx, key) {
			return true
		}
	}

	return false
}

func (c *CacheChain) each(fn func(Cache) error) error {
	var errs []error

	for _, tier := range c.caches {
		if err := fn(tier); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
