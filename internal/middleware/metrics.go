package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the HTTP collectors.  Each instance registers against its own
// registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	responseTime  *prometheus.HistogramVec
	requestsToURI *prometheus.CounterVec
	requests      *prometheus.CounterVec
}

// NewMetrics registers the request collectors plus Go/process collectors on
// a fresh registry.  extra collectors (e.g. store gauges) are registered too.
func NewMetrics(extra ...prometheus.Collector) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		responseTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_time_seconds",
				Help:    "http response time.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		requestsToURI: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_to_uri_total", Help: "http requests by code, route and method"},
			[]string{"code", "uri", "method"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "http requests by code and method"},
			[]string{"code", "method"},
		),
	}
	m.registry.MustRegister(
		m.responseTime,
		m.requestsToURI,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.registry.MustRegister(extra...)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Collect records every request except those to skipPaths.  The uri label
// is the route template, which keeps cardinality bounded.
func (m *Metrics) Collect(skipPaths ...string) echo.MiddlewareFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := skip[c.Request().URL.Path]; ok {
				return next(c)
			}
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			code := strconv.Itoa(c.Response().Status)
			method := c.Request().Method
			uri := c.Path()
			if uri == "" {
				uri = "unmatched"
			}
			m.requestsToURI.WithLabelValues(code, uri, method).Inc()
			m.requests.WithLabelValues(code, method).Inc()
			m.responseTime.WithLabelValues(method).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
