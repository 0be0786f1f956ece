package api

import (
	"encoding/json"
	"net/http"

	"github.com/MicroPhone1/App-HelpPeople/internal/history"
)

// snapshotCount is how many recent records the inspection endpoint returns.
const snapshotCount = 50

type logsAPI struct {
	log        *history.Log
	production bool
}

func (a *logsAPI) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"count": a.log.Len(),
		"logs":  a.log.Recent(snapshotCount),
	})
}

func (a *logsAPI) clear(w http.ResponseWriter, r *http.Request) {
	// Destructive and visible to every observer; dev-only.
	if a.production {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "disabled in production"})
		return
	}
	a.log.Clear()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *logsAPI) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Alert relay server is running",
	})
}

func (a *logsAPI) ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
