package recurrence

import "time"

// EngineConfig holds tuning options for the recurrence engine.
type EngineConfig struct {
	// Cache configuration
	CacheEnabled bool
	CacheConfig  CacheConfig

	// MaxScanSteps bounds the number of calendar steps a single query
	// may attempt. Malformed rules that stop advancing return a partial
	// (possibly empty) result once the ceiling is hit instead of
	// looping forever.
	MaxScanSteps int
}

// DefaultEngineConfig provides sensible defaults for production use.
var DefaultEngineConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig:  DefaultCacheConfig,
	MaxScanSteps: 10000,
}

// UncachedConfig turns off caching entirely; useful for one-shot
// previews and tests.
var UncachedConfig = EngineConfig{
	CacheEnabled: false,
	CacheConfig:  CacheConfig{}, // Not used
	MaxScanSteps: 10000,
}

// HighThroughputConfig trades scan depth for speed and keeps results
// cached longer; suited to servers rendering many previews.
var HighThroughputConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             30 * time.Minute,
		MaxEntries:      5000,
		CleanupInterval: 10 * time.Minute,
	},
	MaxScanSteps: 2000,
}

// NewEngineWithConfig creates a recurrence engine with custom
// configuration.
func NewEngineWithConfig(config EngineConfig) *Engine {
	var cache *Cache
	if config.CacheEnabled {
		cache = NewCache(config.CacheConfig)
	}

	return &Engine{
		cache:  cache,
		config: config,
	}
}
