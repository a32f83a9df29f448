package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is connected, caching is disabled.
// Methods lists the HTTP methods to cache.  TTL is the lifetime of an entry.
// KeyStrategy picks which parts of the request form the cache key.  Prefix
// and MaxBodyBytes control namespacing and the largest response stored.
// SkipPaths are never cached.
type CacheConfig struct {
	Enabled      bool     `toml:"enabled"`
	Methods      []string `toml:"methods"`
	TTL          Duration `toml:"ttl"`
	KeyStrategy  string   `toml:"key_strategy"`
	Prefix       string   `toml:"prefix"`
	MaxBodyBytes int      `toml:"max_body_bytes"`
	SkipPaths    []string `toml:"skip_paths"`
}

func defaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      true,
		Methods:      []string{"GET"},
		TTL:          Duration{30 * time.Second},
		KeyStrategy:  "route_query",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
		SkipPaths:    []string{"/metrics", "/healthz"},
	}
}

func (c *CacheConfig) fromEnv() {
	c.Enabled = envBool("CACHE_ENABLED", c.Enabled)
	c.Methods = envList("CACHE_METHODS", c.Methods)
	c.TTL = envDur("CACHE_TTL", c.TTL)
	c.KeyStrategy = envStr("CACHE_KEY_STRATEGY", c.KeyStrategy)
	c.Prefix = envStr("CACHE_PREFIX", c.Prefix)
	c.MaxBodyBytes = envInt("CACHE_MAX_BODY_BYTES", c.MaxBodyBytes)
	c.SkipPaths = envList("CACHE_SKIP_PATHS", c.SkipPaths)
}

// MethodSet returns Methods upper-cased as a lookup set.
func (c CacheConfig) MethodSet() map[string]bool {
	m := map[string]bool{}
	for _, p := range c.Methods {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
