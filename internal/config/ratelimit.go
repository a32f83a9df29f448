package config

import "time"

// RateLimitConfig configures the Redis token bucket.  Capacity tokens are
// available up front and RefillTokens are added every RefillInterval.
type RateLimitConfig struct {
	Enabled        bool     `toml:"enabled"`
	Capacity       int      `toml:"capacity"`
	RefillTokens   int      `toml:"refill_tokens"`
	RefillInterval Duration `toml:"refill_interval"`
	TTL            Duration `toml:"ttl"`
	KeyStrategy    string   `toml:"key_strategy"`
	Prefix         string   `toml:"prefix"`
	Debug          bool     `toml:"debug"`
}

func defaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:        true,
		Capacity:       60,
		RefillTokens:   1,
		RefillInterval: Duration{time.Second},
		TTL:            Duration{10 * time.Minute},
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
}

func (c *RateLimitConfig) fromEnv() {
	c.Enabled = envBool("RATE_LIMIT_ENABLED", c.Enabled)
	c.Capacity = envInt("RATE_LIMIT_CAPACITY", c.Capacity)
	c.RefillTokens = envInt("RATE_LIMIT_REFILL_TOKENS", c.RefillTokens)
	c.RefillInterval = envDur("RATE_LIMIT_REFILL_INTERVAL", c.RefillInterval)
	c.TTL = envDur("RATE_LIMIT_TTL", c.TTL)
	c.KeyStrategy = envStr("RATE_LIMIT_KEY_STRATEGY", c.KeyStrategy)
	c.Prefix = envStr("RATE_LIMIT_PREFIX", c.Prefix)
	c.Debug = envBool("RATE_LIMIT_DEBUG", c.Debug)

	if b := envInt("RATE_LIMIT_BURST", -1); b > 0 {
		c.Capacity = b
	}
	if every := envDur("RATE_LIMIT_REFILL_EVERY", Duration{}); every.Duration > 0 {
		c.RefillTokens = 1
		c.RefillInterval = every
	}
}

// normalize clamps values the limiter script cannot work with.
func (c *RateLimitConfig) normalize() {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval.Duration <= 0 {
		c.RefillInterval = Duration{time.Second}
	}
	if minTTL := 5 * c.RefillInterval.Duration; c.TTL.Duration < minTTL {
		c.TTL = Duration{minTTL}
	}
}
