// Package observ builds the process logger.
package observ

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName tags every log line.
const ServiceName = "estatehub"

// Config returns the zap configuration for env. Production and staging
// write sampled JSON with ISO8601 timestamps; any other env writes colored
// console lines. An unknown level is an error so a typo in LOG_LEVEL
// fails startup instead of silently logging at info.
func Config(env, level string) (zap.Config, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zap.Config{}, fmt.Errorf("log level: %w", err)
	}

	var cfg zap.Config
	switch env {
	case "production", "staging":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly)
		cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.InitialFields = map[string]any{"service": ServiceName, "env": env}
	return cfg, nil
}

// NewLogger builds the logger described by Config. Stack traces are only
// attached from error up; request logs at warn stay one line.
func NewLogger(env, level string) (*zap.Logger, error) {
	cfg, err := Config(env, level)
	if err != nil {
		return nil, err
	}
	cfg.DisableStacktrace = true
	logger, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
