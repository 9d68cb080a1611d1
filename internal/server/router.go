package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ChiRouter implements the [Router] interface on top of a [chi.Router].
type ChiRouter struct {
	mux chi.Router
}

// NewChiRouter creates a new [ChiRouter] instance.
func NewChiRouter() *ChiRouter {
	return &ChiRouter{mux: chi.NewRouter()}
}

// Use adds [Middleware] to the router's stack, applied in the order it's added.
//
// chi requires all Use calls to happen before the first route is registered.
func (r *ChiRouter) Use(middleware ...Middleware) {
	for _, mw := range middleware {
		r.mux.Use(mw)
	}
}

// With returns an inline router sharing this router's routes, with middleware added for the routes registered on it.
func (r *ChiRouter) With(middleware ...Middleware) Router {
	fns := make([]func(http.Handler) http.Handler, 0, len(middleware))
	for _, mw := range middleware {
		fns = append(fns, mw)
	}
	return &ChiRouter{mux: r.mux.With(fns...)}
}

// Handle registers a handler for the specified HTTP method and path.
//
// Requests with another method get 405 from chi.
func (r *ChiRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Method(method, path, handler)
}

// Handler registers a custom Handler implementation.
//
// All routes returned by [Handler.Routes] are registered with this handler.
func (r *ChiRouter) Handler(handler Handler) {
	for _, route := range handler.Routes() {
		r.mux.Handle(route, handler)
	}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *ChiRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
