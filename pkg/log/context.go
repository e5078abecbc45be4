package log

import (
	"context"

	"github.com/rs/zerolog"
)

// loggerKey is the context key under which request- and event-scoped
// loggers travel.
type loggerKey struct{}

// WithLogger returns a child context carrying logger. The HTTP middleware
// and the CDC consumer put a scoped logger here so lower layers inherit
// its fields.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Ctx returns the logger carried by ctx, or the global logger when the
// context has none.
func Ctx(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return l
	}
	return L()
}
