package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/backend-service-lab3/internal/config"
)

func echoContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestCacheKeyFrom(t *testing.T) {
	cfg := config.Default().Cache

	c0, _ := echoContext(http.MethodGet, "/items/0")
	c1, _ := echoContext(http.MethodGet, "/items/1")
	c1.SetPath("/items/:item_id")
	c0.SetPath("/items/:item_id")

	k0 := cacheKeyFrom(cfg, c0, 0)
	k1 := cacheKeyFrom(cfg, c1, 0)
	assert.NotEqual(t, k0, k1, "distinct paths must not share a cache entry")
	assert.True(t, strings.HasPrefix(k0, cfg.Prefix+":"))

	assert.NotEqual(t, k0, cacheKeyFrom(cfg, c0, 1), "generation is part of the key")
	assert.Equal(t, k0, cacheKeyFrom(cfg, c0, 0))

	cq, _ := echoContext(http.MethodGet, "/items/?a=1")
	cn, _ := echoContext(http.MethodGet, "/items/")
	assert.NotEqual(t, cacheKeyFrom(cfg, cq, 0), cacheKeyFrom(cfg, cn, 0))

	cfg.KeyStrategy = "route"
	assert.Equal(t, cacheKeyFrom(cfg, cq, 0), cacheKeyFrom(cfg, cn, 0))
}

func TestTeeWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	tw := &teeWriter{ResponseWriter: rec, status: http.StatusOK, limit: 6}
	_, _ = tw.Write([]byte("abc"))
	_, _ = tw.Write([]byte("def"))
	assert.Equal(t, "abcdef", tw.body.String())
	assert.False(t, tw.overflow)

	_, _ = tw.Write([]byte("g"))
	assert.True(t, tw.overflow)
	assert.Zero(t, tw.body.Len())
	assert.Equal(t, "abcdefg", rec.Body.String(), "the client always gets the full body")

	tw = &teeWriter{ResponseWriter: httptest.NewRecorder()}
	tw.WriteHeader(http.StatusAccepted)
	assert.Equal(t, http.StatusAccepted, tw.status)
}

func TestReplaySkipsPerExchangeHeaders(t *testing.T) {
	c, rec := echoContext(http.MethodGet, "/items/")
	err := replay(c, cachedResponse{
		Status: http.StatusOK,
		Header: http.Header{
			"Content-Type":          {"application/json"},
			"X-Request-Id":          {"stale"},
			"X-Ratelimit-Remaining": {"7"},
		},
		Body: []byte(`{"count":0}`),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("X-Request-Id"))
	assert.Empty(t, rec.Header().Get("X-Ratelimit-Remaining"))
	assert.Equal(t, `{"count":0}`, rec.Body.String())
}

func TestRedisMiddlewareWithoutClientPassesThrough(t *testing.T) {
	mws := []echo.MiddlewareFunc{
		NewRedisCache(config.Default().Cache, nil),
		NewTokenBucket(config.Default().RateLimit, nil, nil),
	}
	for _, mw := range mws {
		c, rec := echoContext(http.MethodGet, "/items/")
		err := mw(func(c echo.Context) error { return c.String(http.StatusOK, "ok") })(c)
		require.NoError(t, err)
		assert.Equal(t, "ok", rec.Body.String())
		assert.Empty(t, rec.Header().Get("X-Cache"))
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestBuildRateKey(t *testing.T) {
	cfg := config.Default().RateLimit
	c, _ := echoContext(http.MethodGet, "/items/3")
	c.SetPath("/items/:item_id")
	c.Request().RemoteAddr = "10.0.0.7:1234"

	assert.Equal(t, "rl:ip:10.0.0.7:route:GET /items/:item_id", buildRateKey(cfg, c))
	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:ip:10.0.0.7", buildRateKey(cfg, c))
	cfg.KeyStrategy = "route"
	assert.Equal(t, "rl:route:GET /items/:item_id", buildRateKey(cfg, c))
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := echo.New()
	e.Use(AccessLog(zap.New(core), []string{"/items/"}))

	var seen string
	e.POST("/items/", func(c echo.Context) error {
		b, err := io.ReadAll(c.Request().Body)
		seen = string(b)
		if err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	})
	e.POST("/other", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	body := `{"name":"a","price":1}`
	for _, target := range []string{"/items/", "/other"} {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		e.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, body, seen, "handler must still see the full body")
	entries := logs.FilterMessage("request").AllUntimed()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "/items/", first["route"])
	assert.Equal(t, int64(http.StatusOK), first["status"])
	assert.Equal(t, body, first["requestData"])

	_, logged := entries[1].ContextMap()["requestData"]
	assert.False(t, logged, "bodies outside the allowlist are not logged")
}

func TestAccessLogRecordsErrors(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := echo.New()
	e.Use(AccessLog(zap.New(core), nil))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	entries := logs.FilterMessage("request").AllUntimed()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(http.StatusNotFound), fields["status"])
	assert.Contains(t, fields, "error")
}

func TestMetricsCollect(t *testing.T) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_extra_gauge", Help: "extra"})
	m := NewMetrics(gauge)

	e := echo.New()
	e.Use(m.Collect("/metrics"))
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
	e.GET("/items/:item_id", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for _, target := range []string{"/items/1", "/items/2", "/nope"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	out := rec.Body.String()

	assert.Contains(t, out, `http_requests_to_uri_total{code="200",method="GET",uri="/items/:item_id"} 2`)
	assert.Contains(t, out, `http_requests_total{code="404",method="GET"} 1`)
	assert.Contains(t, out, "test_extra_gauge 0")
	assert.Contains(t, out, "go_goroutines")
	assert.NotContains(t, out, `uri="/metrics"`)
}
