package atelier

import (
	"net/http"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// RouteInfo describes one registered route.
type RouteInfo struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Handler string `json:"handler"`
}

// RouteRegistry wraps http.ServeMux and records registered routes for introspection.
type RouteRegistry struct {
	mux    *http.ServeMux
	mu     sync.Mutex
	routes []RouteInfo
}

func NewRouteRegistry() *RouteRegistry {
	return &RouteRegistry{mux: http.NewServeMux()}
}

// Handle registers handler for a ServeMux pattern such as "GET /{locale}/{$}".
// name labels the route in listings; empty uses the handler type.
func (r *RouteRegistry) Handle(pattern, name string, handler http.Handler) {
	method, path := splitPattern(pattern)
	if name == "" {
		name = reflect.TypeOf(handler).String()
	}

	r.mu.Lock()
	r.routes = append(r.routes, RouteInfo{Method: method, Path: path, Handler: name})
	r.mu.Unlock()
	r.mux.Handle(pattern, handler)
}

func (r *RouteRegistry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Routes lists the registered routes ordered by path, then method.
func (r *RouteRegistry) Routes() []RouteInfo {
	r.mu.Lock()
	out := make([]RouteInfo, len(r.routes))
	copy(out, r.routes)
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

func splitPattern(pattern string) (string, string) {
	method, path, found := strings.Cut(pattern, " ")
	if !found || strings.HasPrefix(method, "/") {
		return "", pattern
	}
	return method, strings.TrimSpace(path)
}
