package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/broady/restful"
)

// LoggingInterceptor creates an interceptor that logs domain operation calls using slog.
// It logs the start and end of each call, including duration and error status.
// Existence checks made by delete and update are logged at debug level.
func LoggingInterceptor(logger *slog.Logger) restful.Interceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, info *restful.OpInfo, input any, next restful.OpFunc) (any, error) {
		level := slog.LevelInfo
		if info.Check {
			level = slog.LevelDebug
		}
		attrs := []slog.Attr{slog.String("op", info.String())}
		if route, ok := restful.RouteFromContext(ctx); ok {
			attrs = append(attrs, slog.String("route", route.Pattern()))
		}

		start := time.Now()
		logger.LogAttrs(ctx, level, "operation started", attrs...)

		res, err := next(ctx, input)
		attrs = append(attrs, slog.Duration("duration", time.Since(start)))

		if err != nil {
			logger.LogAttrs(ctx, slog.LevelError, "operation failed", append(attrs, slog.Any("error", err))...)
		} else {
			logger.LogAttrs(ctx, level, "operation completed", attrs...)
		}

		return res, err
	}
}
