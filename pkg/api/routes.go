package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/uptrace/bunrouter"

	"github.com/querylens/querylens/pkg/metrics"
)

// MiddlewareFunc wraps a handler with cross-cutting behavior.
type MiddlewareFunc func(http.Handler) http.Handler

// SetupMuxRoutes registers the engine endpoints on a gorilla/mux
// router. middlewares are applied outermost-first.
func SetupMuxRoutes(muxRouter *mux.Router, handler *Handler, middlewares ...MiddlewareFunc) {
	muxRouter.HandleFunc("/health", handler.HandleHealth).Methods("GET")
	muxRouter.Handle("/metrics", metrics.GetProvider().Handler()).Methods("GET")

	api := muxRouter.PathPrefix("/api").Subrouter()
	api.HandleFunc("/query", handler.HandleQuery).Methods("POST")
	api.HandleFunc("/widget", handler.HandleWidget).Methods("POST")
	api.HandleFunc("/invalidate", handler.HandleInvalidate).Methods("POST")

	for i := len(middlewares) - 1; i >= 0; i-- {
		muxRouter.Use(mux.MiddlewareFunc(middlewares[i]))
	}
}

// BunRouterHandler is an interface that both bunrouter.Router and
// bunrouter.Group implement.
type BunRouterHandler interface {
	Handle(method, path string, handler bunrouter.HandlerFunc)
}

// SetupBunRouterRoutes registers the engine endpoints on a bunrouter
// router or group.
func SetupBunRouterRoutes(r BunRouterHandler, handler *Handler) {
	r.Handle("GET", "/health", wrap(handler.HandleHealth))
	r.Handle("GET", "/metrics", func(w http.ResponseWriter, req bunrouter.Request) error {
		metrics.GetProvider().Handler().ServeHTTP(w, req.Request)
		return nil
	})
	r.Handle("POST", "/api/query", wrap(handler.HandleQuery))
	r.Handle("POST", "/api/widget", wrap(handler.HandleWidget))
	r.Handle("POST", "/api/invalidate", wrap(handler.HandleInvalidate))
}

func wrap(fn http.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		fn(w, req.Request)
		return nil
	}
}
