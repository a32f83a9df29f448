// Package app assembles the server with fx: configuration, loggers, the
// item store, optional Redis and RabbitMQ integrations, metrics and the
// echo instance, plus the lifecycle hooks that start and stop the HTTP
// server.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/iliyamo/backend-service-lab3/internal/config"
	"github.com/iliyamo/backend-service-lab3/internal/handler"
	"github.com/iliyamo/backend-service-lab3/internal/logging"
	"github.com/iliyamo/backend-service-lab3/internal/middleware"
	"github.com/iliyamo/backend-service-lab3/internal/repository"
	"github.com/iliyamo/backend-service-lab3/internal/router"
	"github.com/iliyamo/backend-service-lab3/internal/service"
	"github.com/iliyamo/backend-service-lab3/internal/validation"
)

// Module returns the complete fx option set for cfg.
func Module(cfg config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			provideLoggers,
			func(l logging.Loggers) *zap.Logger { return l.System },
			repository.NewItemRepo,
			provideRedis,
			providePublisher,
			validation.NewBinder,
			provideMetrics,
			provideItemHandler,
			provideEcho,
		),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l}
		}),
		fx.Invoke(registerHooks),
	)
}

func provideLoggers(cfg config.Config) (logging.Loggers, error) {
	return logging.NewLoggers(cfg.Log)
}

func provideRedis(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		if cfg.Redis.Enabled {
			log.Warn("redis unavailable; cache and rate limit disabled", zap.String("addr", cfg.Redis.Addr))
		}
		return nil
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return rdb.Close() }})
	return rdb
}

func providePublisher(cfg config.Config, log *zap.Logger) service.Publisher {
	return service.NewPublisher(cfg.Queue, log)
}

func provideMetrics(cfg config.Config, repo *repository.ItemRepo) *middleware.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	stored := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: "items_stored", Help: "number of items in the store"},
		func() float64 { return float64(repo.Count(context.Background())) },
	)
	return middleware.NewMetrics(stored)
}

func provideItemHandler(repo *repository.ItemRepo, pub service.Publisher, log *zap.Logger) *handler.ItemHandler {
	return handler.NewItemHandler(repo, pub, log)
}

type echoDeps struct {
	fx.In
	Config  config.Config
	Items   *handler.ItemHandler
	Binder  *validation.Binder
	Redis   *redis.Client
	Metrics *middleware.Metrics
	Loggers logging.Loggers
}

func provideEcho(d echoDeps) *echo.Echo {
	return router.New(router.Deps{
		Config:    d.Config,
		Items:     d.Items,
		Binder:    d.Binder,
		Redis:     d.Redis,
		Metrics:   d.Metrics,
		Log:       d.Loggers.System,
		AccessLog: d.Loggers.Access,
	})
}

func registerHooks(lc fx.Lifecycle, cfg config.Config, e *echo.Echo, loggers logging.Loggers) {
	log := loggers.System
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("server starting", zap.String("addr", ln.Addr().String()), zap.String("env", cfg.Env))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("server stopping")
			err := srv.Shutdown(ctx)
			loggers.Sync()
			return err
		},
	})
}
