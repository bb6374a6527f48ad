package api

import (
	"net/http"
	"time"

	"codeberg.org/mutker/usagemon/internal/logger"
	"github.com/gorilla/mux"
)

// NewRouter registers the query routes.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestLogger)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/resources", h.HandleResources).Methods(http.MethodGet)
	api.HandleFunc("/resources/{resource}/realtime", h.HandleRealtime).Methods(http.MethodGet)
	api.HandleFunc("/resources/{resource}/window", h.HandleWindow).Methods(http.MethodGet)
	api.HandleFunc("/window", h.HandleMergedWindow).Methods(http.MethodGet)

	router.HandleFunc("/healthz", h.HandleHealth).Methods(http.MethodGet)

	return router
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("Request served")
	})
}
