package router

import (
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
)

// redirectSlashes answers 307 when the request path matches no route but
// the same path with the trailing slash added or removed does.  The method
// and query string are preserved.  Routes are read from e on first use, so
// routes registered after the middleware are included.
func redirectSlashes(e *echo.Echo) echo.MiddlewareFunc {
	var (
		once      sync.Once
		templates [][]string
	)
	load := func() {
		seen := map[string]bool{}
		for _, r := range e.Routes() {
			if !seen[r.Path] {
				seen[r.Path] = true
				templates = append(templates, strings.Split(r.Path, "/"))
			}
		}
	}
	routed := func(path string) bool {
		segs := strings.Split(path, "/")
		for _, t := range templates {
			if matchSegments(t, segs) {
				return true
			}
		}
		return false
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			once.Do(load)
			r := c.Request()
			path := r.URL.Path
			if path == "/" || path == "" || routed(path) {
				return next(c)
			}

			alt := path + "/"
			if strings.HasSuffix(path, "/") {
				alt = strings.TrimSuffix(path, "/")
			}
			if alt == "" || !routed(alt) {
				return next(c)
			}
			u := *r.URL
			u.Path = alt
			u.RawPath = ""
			return c.Redirect(http.StatusTemporaryRedirect, u.RequestURI())
		}
	}
}

// matchSegments reports whether segs fits the route template.  ":name"
// matches one non-empty segment and a trailing "*" matches the rest.
func matchSegments(template, segs []string) bool {
	for i, t := range template {
		if t == "*" && i == len(template)-1 {
			return true
		}
		if i >= len(segs) {
			return false
		}
		switch {
		case strings.HasPrefix(t, ":"):
			if segs[i] == "" {
				return false
			}
		case t != segs[i]:
			return false
		}
	}
	return len(template) == len(segs)
}
