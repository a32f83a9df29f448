package config

// This file defines the Redis client constructor.  Redis backs the rate
// limiter and the response cache.  If the connection fails during startup
// the constructor returns nil and both middlewares degrade to pass-through.

import (
	"context"
	"crypto/tls"
	"net"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection settings.  Redis is only dialed when
// Enabled is set.
type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	TLS      bool   `toml:"tls"`
}

func defaultRedisConfig() RedisConfig {
	return RedisConfig{Addr: "localhost:6379"}
}

// fromEnv reads REDIS_ENABLED, REDIS_ADDR, REDIS_HOST and REDIS_PORT
// (host/port take precedence over addr), REDIS_PASSWORD, REDIS_DB and REDIS_TLS.
func (c *RedisConfig) fromEnv() {
	c.Enabled = envBool("REDIS_ENABLED", c.Enabled)
	c.Addr = envStr("REDIS_ADDR", c.Addr)
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		c.Addr = net.JoinHostPort(host, port)
	}
	c.Password = envStr("REDIS_PASSWORD", c.Password)
	c.DB = envInt("REDIS_DB", c.DB)
	c.TLS = envBool("REDIS_TLS", c.TLS)
}

// NewRedisClient instantiates a Redis client from cfg.  The returned client
// is nil when Redis is disabled or the server does not answer a ping.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	// Ping the server with a short timeout.  Return nil on failure.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
