package restful

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"sync"
)

// Mountable is a set of routes that can be registered on an App.
// *Resource implements it.
type Mountable interface {
	Descriptor() Descriptor
	Routes() []Route
}

// App is the router resources are mounted on. It owns an http.ServeMux,
// the middleware stack, the interceptors wrapped around domain calls and the
// logger. Use Handler() to get an http.Handler for use with http.ListenAndServe.
type App struct {
	mu                 sync.RWMutex
	mux                *http.ServeMux
	routes             []Route
	interceptors       []Interceptor
	middlewares        []func(http.Handler) http.Handler
	logger             *slog.Logger
	maxRequestBodySize int64
}

func NewApp() *App {
	return &App{
		mux:                http.NewServeMux(),
		maxRequestBodySize: defaultMaxRequestBodySize,
	}
}

// WithInterceptor adds an interceptor around every domain operation call.
// Interceptors execute in the order they were added.
func (a *App) WithInterceptor(i Interceptor) *App {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.interceptors = append(a.interceptors, i)
	return a
}

// WithMiddleware adds an HTTP middleware to wrap the app.
// Middleware is applied in the order added (first added is outermost).
func (a *App) WithMiddleware(mw func(http.Handler) http.Handler) *App {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.middlewares = append(a.middlewares, mw)
	return a
}

// WithLogger sets a custom logger for the app.
// If not set, slog.Default() will be used.
func (a *App) WithLogger(logger *slog.Logger) *App {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logger = logger
	return a
}

// WithMaxRequestBodySize sets the maximum size of create and update bodies.
// A value of 0 means no limit. Default is 1MB (1 << 20).
func (a *App) WithMaxRequestBodySize(size int64) *App {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.maxRequestBodySize = size
	return a
}

// Mount registers the routes of each resource. It fails if a route pattern is
// malformed or conflicts with one already registered; routes of a resource
// that fails are not registered.
func (a *App) Mount(resources ...Mountable) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, res := range resources {
		desc := res.Descriptor()
		if err := desc.Validate(); err != nil {
			return err
		}
		routes := res.Routes()
		for _, route := range routes {
			for _, existing := range a.routes {
				if existing.Pattern() == route.Pattern() {
					return fmt.Errorf("restful: %s route %q already registered by %s", desc.Name, route.Pattern(), existing.Resource)
				}
			}
		}

		// Validate all patterns against a scratch mux first so a failing
		// resource leaves the app untouched.
		if err := register(http.NewServeMux(), a.routes, routes, a.serveRoute); err != nil {
			return fmt.Errorf("restful: mount %s: %w", desc.Name, err)
		}
		if err := register(a.mux, nil, routes, a.serveRoute); err != nil {
			return fmt.Errorf("restful: mount %s: %w", desc.Name, err)
		}
		a.routes = append(a.routes, routes...)
		a.loggerLocked().Debug("mounted resource",
			slog.String("resource", desc.Name),
			slog.String("prefix", desc.CollectionPath()))
	}
	return nil
}

// register adds previous and routes to mux, converting ServeMux panics on bad
// or conflicting patterns into errors.
func register(mux *http.ServeMux, previous, routes []Route, wrap func(Route) http.Handler) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%v", rec)
		}
	}()
	for _, route := range previous {
		mux.Handle(route.Pattern(), wrap(route))
	}
	for _, route := range routes {
		if route.Handler == nil {
			return fmt.Errorf("route %q has no handler", route.Pattern())
		}
		mux.Handle(route.Pattern(), wrap(route))
	}
	return nil
}

// serveRoute wraps a route handler so it runs with the app configuration and
// the route in its context.
func (a *App) serveRoute(route Route) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := withRoute(r.Context(), &route, a.config())
		route.Handler.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *App) config() *handlerConfig {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return &handlerConfig{
		logger:             a.logger,
		interceptors:       slices.Clone(a.interceptors),
		maxRequestBodySize: a.maxRequestBodySize,
	}
}

// Routes returns every registered route in registration order.
func (a *App) Routes() []Route {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.routes)
}

// Handler returns an http.Handler for use with http.ListenAndServe or other
// HTTP servers. The returned handler includes all configured middleware.
//
// Example:
//
//	app := restful.NewApp().WithMiddleware(cors)
//	if err := app.Mount(items); err != nil {
//	    log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", app.Handler())
func (a *App) Handler() http.Handler {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var h http.Handler = http.HandlerFunc(a.serveHTTP)
	// Apply middleware in reverse order so first added is outermost
	for i := len(a.middlewares) - 1; i >= 0; i-- {
		h = a.middlewares[i](h)
	}
	return h
}

// serveHTTP dispatches to the mux and turns panics in handlers or domain
// operations into a 500 response.
func (a *App) serveHTTP(w http.ResponseWriter, req *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			a.getLogger().Error("PANIC recovered",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			writeInternal(w, fmt.Errorf("internal server error (panic): %v", rec))
		}
	}()
	a.mux.ServeHTTP(w, req)
}

// loggerLocked returns the effective logger; a.mu must be held.
func (a *App) loggerLocked() *slog.Logger {
	return loggerOrDefault(a.logger)
}

func (a *App) getLogger() *slog.Logger {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return loggerOrDefault(a.logger)
}
