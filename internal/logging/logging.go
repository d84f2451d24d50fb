// Package logging builds the structured logger shared by the engine and the
// application.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production zap logger writing JSON to stderr. verbose forces
// the debug level; otherwise level is parsed ("debug", "info", "warn", ...),
// defaulting to warn.
func New(level string, verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stderr"}
	config.Sampling = nil

	lvl := zapcore.WarnLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
