// Package logging builds the zap loggers used by the service.  Each logger
// writes JSON lines to a lumberjack-rotated file under the configured
// directory and, optionally, to stdout.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/iliyamo/backend-service-lab3/internal/config"
)

// File names for the two loggers the server keeps.
const (
	SystemLogFile = "system.log"
	AccessLogFile = "http-access.log"
)

// New returns a logger that tees to <cfg.Dir>/<name> and stdout.  An empty
// cfg.Dir disables the file sink.
func New(cfg config.LogConfig, name string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}

	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, name),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), w, level))
	}
	if cfg.Console {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.Lock(os.Stdout), level))
	}
	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}

// Loggers groups the system and access loggers so they can be provided together.
type Loggers struct {
	System *zap.Logger
	Access *zap.Logger
}

// NewLoggers builds both loggers from cfg.
func NewLoggers(cfg config.LogConfig) (Loggers, error) {
	sys, err := New(cfg, SystemLogFile)
	if err != nil {
		return Loggers{}, err
	}
	access, err := New(cfg, AccessLogFile)
	if err != nil {
		return Loggers{}, err
	}
	return Loggers{System: sys, Access: access.Named("access")}, nil
}

// Sync flushes both loggers, ignoring the usual stdout sync errors.
func (l Loggers) Sync() {
	_ = l.System.Sync()
	_ = l.Access.Sync()
}
