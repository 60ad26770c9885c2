// Package logging provides the process-wide structured logger used by
// every component of the execution dispatch core.
package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sandboxcore/internal/apierr"
)

var (
	logger *zap.Logger
	sugar  *zap.SugaredLogger
	once   sync.Once
)

// Init initializes the global logger. Safe to call multiple times.
func Init() {
	once.Do(func() {
		var cfg zap.Config
		if os.Getenv("ENVIRONMENT") == "production" {
			cfg = zap.NewProductionConfig()
			cfg.EncoderConfig.TimeKey = "ts"
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		} else {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}

		var err error
		logger, err = cfg.Build(zap.AddCallerSkip(1))
		if err != nil {
			logger = zap.NewNop()
		}
		sugar = logger.Sugar()
	})
}

// L returns the global structured logger.
func L() *zap.Logger {
	if logger == nil {
		Init()
	}
	return logger
}

// S returns the global sugared logger (printf-style).
func S() *zap.SugaredLogger {
	if sugar == nil {
		Init()
	}
	return sugar
}

// Sync flushes any buffered log entries. Call before process exit.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}

// With returns a logger with additional structured fields attached.
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

// Sandbox returns a logger pre-tagged with the sandbox/session/language
// fields that every sandbox-touching log line must carry.
func Sandbox(sandboxID, sessionID, language string) *zap.Logger {
	return With(
		zap.String("sandbox_id", sandboxID),
		zap.String("session_id", sessionID),
		zap.String("language", language),
	)
}

// Err returns a zap field pair for an error: the formatted error plus its
// stable taxonomy kind, so alerting can filter on kind without string
// matching the message.
func Err(err error) []zap.Field {
	if err == nil {
		return nil
	}
	return []zap.Field{
		zap.Error(err),
		zap.String("error_kind", string(apierr.KindOf(err))),
	}
}
