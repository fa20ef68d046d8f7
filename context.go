package restful

import (
	"context"
	"log/slog"
)

type contextKey struct {
	name string
}

var (
	routeKey  = &contextKey{"route"}
	configKey = &contextKey{"config"}
)

// defaultMaxRequestBodySize bounds request bodies when no App configures a limit.
const defaultMaxRequestBodySize = 1 << 20

// handlerConfig is the App configuration handlers read from the request context.
type handlerConfig struct {
	logger             *slog.Logger
	interceptors       []Interceptor
	maxRequestBodySize int64
}

var defaultConfig = &handlerConfig{maxRequestBodySize: defaultMaxRequestBodySize}

// RouteFromContext returns the route being served. It is set by App for
// handlers, interceptors and middleware registered through it.
func RouteFromContext(ctx context.Context) (Route, bool) {
	r, ok := ctx.Value(routeKey).(*Route)
	if !ok {
		return Route{}, false
	}
	return *r, true
}

func withRoute(ctx context.Context, r *Route, cfg *handlerConfig) context.Context {
	ctx = context.WithValue(ctx, routeKey, r)
	ctx = context.WithValue(ctx, configKey, cfg)
	return ctx
}

func configFromContext(ctx context.Context) *handlerConfig {
	if cfg, ok := ctx.Value(configKey).(*handlerConfig); ok {
		return cfg
	}
	return defaultConfig
}
