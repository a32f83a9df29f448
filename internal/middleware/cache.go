package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/backend-service-lab3/internal/config"
)

// Headers that belong to a single exchange and are never replayed.
var uncachedHeaders = map[string]bool{
	"Content-Length":        true,
	"X-Cache":               true,
	echo.HeaderXRequestID:   true,
	"X-Ratelimit-Limit":     true,
	"X-Ratelimit-Remaining": true,
	"X-Ratelimit-Key":       true,
}

// cachedResponse is what a cache entry holds.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// teeWriter forwards to the client and keeps a copy of the body until it
// grows past limit (0 means unlimited).
type teeWriter struct {
	http.ResponseWriter
	status   int
	body     bytes.Buffer
	limit    int
	overflow bool
}

func (w *teeWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
	if !w.overflow {
		if w.limit > 0 && w.body.Len()+len(b) > w.limit {
			w.overflow = true
			w.body.Reset()
		} else {
			w.body.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// cacheKeyFrom derives the entry key for a request.  The concrete request
// path is used, never the route template, so /items/0 and /items/1 get
// separate entries.  gen is the current write generation.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context, gen int64) string {
	r := c.Request()
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{r.URL.Path}
	case "method_route":
		parts = []string{r.Method, r.URL.Path}
	case "method_route_query":
		parts = []string{r.Method, r.URL.Path, r.URL.RawQuery}
	default: // route_query
		parts = []string{r.URL.Path, r.URL.RawQuery}
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return cfg.Prefix + ":" + strconv.FormatInt(gen, 10) + ":" + hex.EncodeToString(sum[:16])
}

type responseCache struct {
	rdb     *redis.Client
	cfg     config.CacheConfig
	ttl     time.Duration
	methods map[string]bool
	skip    map[string]bool
	genKey  string
}

// generation returns the current write generation; a missing counter is 0.
func (rc *responseCache) generation(ctx context.Context) (int64, error) {
	gen, err := rc.rdb.Get(ctx, rc.genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// invalidate orphans every stored entry; they expire on their own TTL.
func (rc *responseCache) invalidate() {
	_ = rc.rdb.Incr(context.Background(), rc.genKey).Err()
}

func (rc *responseCache) load(ctx context.Context, key string) (cachedResponse, bool) {
	bs, err := rc.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return cachedResponse{}, false
	}
	var entry cachedResponse
	if err := json.Unmarshal(bs, &entry); err != nil || entry.Status == 0 {
		return cachedResponse{}, false
	}
	return entry, true
}

func (rc *responseCache) save(key string, entry cachedResponse) {
	bs, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_ = rc.rdb.Set(context.Background(), key, bs, rc.ttl).Err()
}

func replay(c echo.Context, entry cachedResponse) error {
	h := c.Response().Header()
	for k, vals := range entry.Header {
		if uncachedHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		for _, v := range vals {
			h.Add(k, v)
		}
	}
	h.Set("X-Cache", "HIT")
	c.Response().WriteHeader(entry.Status)
	if len(entry.Body) == 0 {
		return nil
	}
	_, err := c.Response().Write(entry.Body)
	return err
}

// NewRedisCache replays stored 200 responses for the configured methods.
// A successful request with any other method is treated as a write and
// bumps the generation counter, which invalidates every entry at once.
// It is a pass-through when disabled or when rdb is nil.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	rc := &responseCache{
		rdb:     rdb,
		cfg:     cfg,
		ttl:     cfg.TTL.Duration,
		methods: cfg.MethodSet(),
		skip:    make(map[string]bool, len(cfg.SkipPaths)),
		genKey:  cfg.Prefix + ":gen",
	}
	if rc.ttl <= 0 {
		rc.ttl = 5 * time.Minute
	}
	for _, p := range cfg.SkipPaths {
		rc.skip[p] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			if rc.skip[r.URL.Path] {
				return next(c)
			}
			if !rc.methods[strings.ToUpper(r.Method)] {
				err := next(c)
				if st := c.Response().Status; err == nil && st >= 200 && st < 300 {
					rc.invalidate()
				}
				return err
			}

			gen, err := rc.generation(r.Context())
			if err != nil {
				return next(c) // redis unavailable: serve uncached
			}
			key := cacheKeyFrom(cfg, c, gen)
			if entry, ok := rc.load(r.Context(), key); ok {
				return replay(c, entry)
			}

			res := c.Response()
			orig := res.Writer
			tw := &teeWriter{ResponseWriter: orig, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			res.Writer = tw
			defer func() { res.Writer = orig }()
			res.Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if tw.status != http.StatusOK || tw.overflow {
				return nil
			}
			rc.save(key, cachedResponse{
				Status: tw.status,
				Header: res.Header().Clone(),
				Body:   append([]byte(nil), tw.body.Bytes()...),
			})
			return nil
		}
	}
}
