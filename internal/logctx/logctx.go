// Package logctx provides context-based logger injection and extraction.
//
// Callers attach an enriched logger once (for example with the request ID or
// the input file being ingested) and every function below picks it up:
//
//	ctx = logctx.WithStr(ctx, "input", path)
//	log := logctx.FromContext(ctx)
package logctx

import (
	"context"

	"github.com/ArseniyKD/yt-history-analysis/pkg/logging"
	"github.com/rs/zerolog"
)

// loggerKey is the private key type for storing loggers in context.
type loggerKey struct{}

// WithLogger returns a new context with the given logger attached.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext extracts the logger from the context. If the context is nil
// or carries no logger, the process logger from pkg/logging is returned.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
			return logger
		}
	}
	return *logging.L()
}

// WithStr returns a new context with a logger that has the specified string field added.
func WithStr(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, logger)
}

// WithInt returns a new context with a logger that has the specified int field added.
func WithInt(ctx context.Context, key string, value int) context.Context {
	logger := FromContext(ctx).With().Int(key, value).Logger()
	return WithLogger(ctx, logger)
}

// WithPhase returns a new context whose logger carries the phase field.
func WithPhase(ctx context.Context, phase string) context.Context {
	return WithStr(ctx, "phase", phase)
}
