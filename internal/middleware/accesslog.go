package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const maxLoggedBody = 1 << 16 // 64 KiB

// AccessLog writes one structured line per request.  Small JSON request
// bodies are included for the allowlisted paths only; everything else is
// redacted by omission.
func AccessLog(log *zap.Logger, bodyPaths []string) echo.MiddlewareFunc {
	allow := make(map[string]struct{}, len(bodyPaths))
	for _, p := range bodyPaths {
		if p = strings.TrimSpace(p); p != "" {
			allow[p] = struct{}{}
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()

			var body []byte
			if wantsBody(r, allow) {
				b, err := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody+1))
				if err == nil {
					body = b
				}
				// Restore what was read so the handler sees the whole body.
				r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(b), r.Body))
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			lat := time.Since(start)

			res := c.Response()
			fields := []zap.Field{
				zap.String("requestId", res.Header().Get(echo.HeaderXRequestID)),
				zap.String("httpProto", r.Proto),
				zap.String("httpMethod", r.Method),
				zap.String("route", c.Path()),
				zap.String("uri", r.URL.RequestURI()),
				zap.String("remoteIp", c.RealIP()),
				zap.Int("status", res.Status),
				zap.Int64("responseSize", res.Size),
				zap.Duration("lat", lat),
			}
			if len(body) > 0 && len(body) <= maxLoggedBody {
				fields = append(fields, zap.ByteString("requestData", body))
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}
			log.Info("request", fields...)
			return err
		}
	}
}

// wantsBody reports whether r is a JSON write on an allowlisted path.
func wantsBody(r *http.Request, allow map[string]struct{}) bool {
	if r.Body == nil || len(allow) == 0 {
		return false
	}
	if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
		return false
	}
	if !strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return false
	}
	_, ok := allow[r.URL.Path]
	return ok
}
