package api

import (
	"log"
	"net/http"
	"time"

	"github.com/MicroPhone1/App-HelpPeople/internal/history"
)

// NewRouter creates the HTTP router: health probes, the log inspection
// endpoints and the websocket relay endpoint.
func NewRouter(hub *Hub, histLog *history.Log, origins []string, production bool) http.Handler {
	mux := http.NewServeMux()

	la := &logsAPI{log: histLog, production: production}

	mux.HandleFunc("GET /{$}", la.health)
	mux.HandleFunc("GET /ping", la.ping)
	mux.HandleFunc("GET /logs", la.list)
	mux.HandleFunc("DELETE /logs", la.clear)

	// WebSocket
	mux.HandleFunc("GET /ws", hub.HandleWS)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "Not Found",
			"url":   r.URL.Path,
		})
	})

	return withMiddleware(mux, origins)
}

func withMiddleware(next http.Handler, origins []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Recovery
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[http] panic: %v", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()

		// CORS: requests without an Origin header (curl, Postman) pass;
		// browser requests must come from an allowed origin.
		origin := r.Header.Get("Origin")
		if origin != "" {
			if !originAllowed(origin, origins) {
				http.Error(w, "CORS not allowed", http.StatusForbidden)
				return
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)

		log.Printf("[http] %s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == origin || a == "*" {
			return true
		}
	}
	return false
}
