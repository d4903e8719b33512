package config

import "time"

// CacheConfig defines settings for the preferences response cache. When
// Enabled is false or no Redis client is configured, caching is disabled.
// Entries are keyed per user and invalidated by every preference write, so
// the TTL only bounds staleness across multiple devices.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: envBool("CACHE_ENABLED", true),
		TTL:     envDur("CACHE_TTL", 30*time.Second),
		Prefix:  envStr("CACHE_PREFIX", "prefs"),
	}
}
