// Package config loads application configuration.  Values are layered:
// built-in defaults, then an optional TOML file, then an optional .env
// file, then the process environment.  Later layers win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all runtime configuration values.
type Config struct {
	Env       string          `toml:"env"`  // application environment (dev, test, prod)
	Host      string          `toml:"host"` // interface to bind
	Port      string          `toml:"port"` // HTTP port to listen on
	Log       LogConfig       `toml:"log"`
	Redis     RedisConfig     `toml:"redis"`
	Cache     CacheConfig     `toml:"cache"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Queue     QueueConfig     `toml:"queue"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

// LogConfig controls the zap loggers.
type LogConfig struct {
	Level      string   `toml:"level"`
	Dir        string   `toml:"dir"` // empty disables file output
	Console    bool     `toml:"console"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
	MaxAgeDays int      `toml:"max_age_days"`
	BodyPaths  []string `toml:"body_paths"` // request paths whose small JSON bodies are logged
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns the configuration used when nothing else is supplied.
// The server listens on 0.0.0.0:8000 and needs no external services.
func Default() Config {
	return Config{
		Env:  "dev",
		Host: "0.0.0.0",
		Port: "8000",
		Log: LogConfig{
			Level:      "info",
			Dir:        "log",
			Console:    true,
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			BodyPaths:  []string{"/items/"},
		},
		Redis:     defaultRedisConfig(),
		Cache:     defaultCacheConfig(),
		RateLimit: defaultRateLimitConfig(),
		Queue:     defaultQueueConfig(),
		Metrics:   MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

// Load builds a Config.  path names an optional TOML file; when empty the
// APP_CONFIG_FILE variable is consulted.  A .env file (or the file named by
// ENV_FILE) is loaded into the environment if it exists.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("APP_CONFIG_FILE")
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := godotenv.Load(envStr("ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg.applyEnv()
	cfg.RateLimit.normalize()
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Env = envStr("APP_ENV", c.Env)
	c.Host = envStr("APP_HOST", c.Host)
	c.Port = envStr("APP_PORT", envStr("PORT", c.Port))

	c.Log.Level = envStr("LOG_LEVEL", c.Log.Level)
	c.Log.Dir = envStr("LOG_DIR", c.Log.Dir)
	c.Log.Console = envBool("LOG_CONSOLE", c.Log.Console)
	c.Log.BodyPaths = envList("LOG_BODY_PATHS", c.Log.BodyPaths)

	c.Metrics.Enabled = envBool("METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Path = envStr("METRICS_PATH", c.Metrics.Path)

	c.Redis.fromEnv()
	c.Cache.fromEnv()
	c.RateLimit.fromEnv()
	c.Queue.fromEnv()
}

// Addr is the host:port the HTTP server binds to.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}
