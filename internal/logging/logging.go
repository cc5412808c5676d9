// Package logging constructs the single structured logger threaded through
// the ingest pipeline.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds a *zap.SugaredLogger appropriate for env ("prod" uses the JSON
// production encoder; anything else uses the human-readable development
// encoder) at the given level ("debug", "info", "warn", "error").
func New(env, level string) (*zap.SugaredLogger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: invalid level %q: %w", level, err)
	}

	var cfg zap.Config
	if env == "prod" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger.Sugar(), nil
}

// NoOp returns a logger that discards everything, for use in tests.
func NoOp() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
