package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/backend-service-lab3/internal/config"
)

// bucketScript refills a bucket continuously at per_ms tokens per
// millisecond, then tries to take one token.  It returns
// {allowed, whole tokens left, ms until the next token}.
var bucketScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local per_ms = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local stored = redis.call('HMGET', KEYS[1], 'level', 'ts')
local level = tonumber(stored[1]) or capacity
local ts = tonumber(stored[2]) or now
if now > ts then
	level = math.min(capacity, level + (now - ts) * per_ms)
end

local allowed = 0
local wait = 0
if level >= 1 then
	allowed = 1
	level = level - 1
elseif per_ms > 0 then
	wait = math.ceil((1 - level) / per_ms)
end

redis.call('HSET', KEYS[1], 'level', tostring(level), 'ts', now)
redis.call('EXPIRE', KEYS[1], ttl)
return { allowed, math.floor(level), wait }
`)

type bucketDecision struct {
	allowed    bool
	remaining  int64
	retryAfter time.Duration
}

type tokenBucket struct {
	rdb   *redis.Client
	cfg   config.RateLimitConfig
	perMs float64
	ttl   int64
}

func (b *tokenBucket) take(ctx context.Context, key string) (bucketDecision, error) {
	res, err := bucketScript.Run(ctx, b.rdb, []string{key},
		b.cfg.Capacity, b.perMs, time.Now().UnixMilli(), b.ttl).Int64Slice()
	if err != nil {
		return bucketDecision{}, err
	}
	if len(res) != 3 {
		return bucketDecision{allowed: true}, nil
	}
	return bucketDecision{
		allowed:    res[0] == 1,
		remaining:  res[1],
		retryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// NewTokenBucket limits requests per key with a token bucket kept in Redis.
// It is a pass-through when disabled or when rdb is nil.  Redis errors
// never block traffic.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if log == nil {
		log = zap.NewNop()
	}
	intervalMs := math.Max(1, float64(cfg.RefillInterval.Milliseconds()))
	b := &tokenBucket{
		rdb:   rdb,
		cfg:   cfg,
		perMs: float64(cfg.RefillTokens) / intervalMs,
		ttl:   int64(math.Max(1, cfg.TTL.Seconds())),
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			d, err := b.take(c.Request().Context(), key)
			if err != nil {
				if cfg.Debug {
					log.Warn("ratelimit: redis error", zap.String("key", key), zap.Error(err))
				}
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if d.allowed {
				return next(c)
			}

			secs := int(math.Ceil(d.retryAfter.Seconds()))
			h.Set("Retry-After", strconv.Itoa(secs))
			if cfg.Debug {
				log.Info("ratelimit: blocked", zap.String("key", key), zap.Duration("retry_after", d.retryAfter))
			}
			return c.JSON(http.StatusTooManyRequests, map[string]any{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

// buildRateKey keys the bucket by client IP, route template, or both.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.Request().Method + " " + c.Path()

	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		return cfg.Prefix + ":ip:" + ip
	case "route":
		return cfg.Prefix + ":route:" + route
	default: // ip_route
		return cfg.Prefix + ":ip:" + ip + ":route:" + route
	}
}
