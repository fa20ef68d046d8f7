// Package devtools serves runtime and route information about a restful app.
//
// Install it as middleware on the app it describes:
//
//	app := restful.NewApp()
//	app.WithMiddleware(devtools.New(app, 8080).Middleware("/__restful"))
//
// It answers GET {prefix}/ping, {prefix}/info and {prefix}/routes and passes
// every other request through.
package devtools

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strings"

	"github.com/broady/restful"
)

// Service provides devtools endpoints for an app.
type Service struct {
	app  *restful.App
	port int
}

// New creates a new devtools service.
func New(app *restful.App, port int) *Service {
	return &Service{app: app, port: port}
}

// PingResponse is the response for ping.
type PingResponse struct {
	OK bool `json:"ok"`
}

// InfoResponse provides runtime information about the server.
type InfoResponse struct {
	Port          int         `json:"port"`
	Version       string      `json:"version"`
	NumGoroutines int         `json:"num_goroutines"`
	NumCPU        int         `json:"num_cpu"`
	Memory        MemoryStats `json:"memory"`
}

// MemoryStats contains memory statistics.
type MemoryStats struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
}

// RoutesResponse lists the mounted routes grouped by resource.
type RoutesResponse struct {
	// Resources maps resource names to their routes, in registration order.
	Resources map[string][]RouteInfo `json:"resources"`
	Count     int                    `json:"count"`
}

// RouteInfo describes one mounted route.
type RouteInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Op     string `json:"op"`
}

// Ping is a simple health check.
func (s *Service) Ping() *PingResponse {
	return &PingResponse{OK: true}
}

// Info returns runtime information about the server.
func (s *Service) Info() *InfoResponse {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return &InfoResponse{
		Port:          s.port,
		Version:       runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		Memory: MemoryStats{
			Alloc:      m.Alloc,
			TotalAlloc: m.TotalAlloc,
			Sys:        m.Sys,
			NumGC:      m.NumGC,
		},
	}
}

// Routes returns the routes mounted on the app.
func (s *Service) Routes() *RoutesResponse {
	routes := s.app.Routes()
	resp := &RoutesResponse{Resources: make(map[string][]RouteInfo), Count: len(routes)}
	for _, r := range routes {
		resp.Resources[r.Resource] = append(resp.Resources[r.Resource], RouteInfo{
			Method: r.Method,
			Path:   r.Path,
			Op:     string(r.Op),
		})
	}
	return resp
}

// Middleware serves the devtools endpoints under prefix and passes other
// requests to the next handler.
func (s *Service) Middleware(prefix string) func(http.Handler) http.Handler {
	prefix = strings.TrimSuffix(prefix, "/")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name, ok := strings.CutPrefix(r.URL.Path, prefix+"/")
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			var resp any
			switch name {
			case "ping":
				resp = s.Ping()
			case "info":
				resp = s.Info()
			case "routes":
				resp = s.Routes()
			default:
				next.ServeHTTP(w, r)
				return
			}

			if r.Method != http.MethodGet {
				w.Header().Set("Allow", http.MethodGet)
				http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		})
	}
}
