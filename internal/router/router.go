// Package router builds the echo instance and registers the API routes.
package router

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/backend-service-lab3/internal/config"
	"github.com/iliyamo/backend-service-lab3/internal/handler"
	"github.com/iliyamo/backend-service-lab3/internal/middleware"
)

// Deps are the collaborators New wires into the echo instance.  Redis and
// Metrics may be nil, which turns the matching middleware off.
type Deps struct {
	Config    config.Config
	Items     *handler.ItemHandler
	Binder    echo.Binder
	Redis     *redis.Client
	Metrics   *middleware.Metrics
	Log       *zap.Logger
	AccessLog *zap.Logger
}

// New returns a fully wired echo instance.  The middleware order is:
// request id, access log, metrics, recover, slash redirect, rate limit,
// response cache.  Recover sits inside the access log and metrics so that
// recovered panics are logged and counted as 500s.
func New(d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.AccessLog == nil {
		d.AccessLog = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if d.Binder != nil {
		e.Binder = d.Binder
	}
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.AccessLog(d.AccessLog, d.Config.Log.BodyPaths))
	if d.Metrics != nil {
		e.Use(d.Metrics.Collect(d.Config.Metrics.Path))
		e.GET(d.Config.Metrics.Path, echo.WrapHandler(d.Metrics.Handler()))
	}
	e.Use(echomw.Recover())
	e.Use(redirectSlashes(e))
	e.Use(middleware.NewTokenBucket(d.Config.RateLimit, d.Redis, d.Log))
	e.Use(middleware.NewRedisCache(d.Config.Cache, d.Redis))

	RegisterRoutes(e, d.Items)
	return e
}

// RegisterRoutes maps the public API onto e.
func RegisterRoutes(e *echo.Echo, items *handler.ItemHandler) {
	e.GET("/", handler.Welcome)

	e.GET("/items/", items.ListItems)
	e.POST("/items/", items.CreateItem)
	e.GET("/items/:item_id", items.GetItem)

	e.GET("/health", handler.HealthCheck)
	e.GET("/healthz", handler.Health) // plain-text liveness probe
}
