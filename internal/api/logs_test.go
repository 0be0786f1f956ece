package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MicroPhone1/App-HelpPeople/internal/history"
	"github.com/MicroPhone1/App-HelpPeople/internal/model"
)

func newTestRouter(t *testing.T, origins []string, production bool) (*history.Log, http.Handler) {
	t.Helper()
	histLog := history.New(100)
	hub := NewHub(histLog, origins)
	return histLog, NewRouter(hub, histLog, origins, production)
}

func TestHealthEndpoints(t *testing.T) {
	_, router := newTestRouter(t, nil, false)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want 200", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("GET / body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("GET / status field = %q, want ok", body["status"])
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/ping", nil))
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "pong" {
		t.Errorf("GET /ping = %d %q, want 200 pong", rr.Code, rr.Body.String())
	}
}

func TestListLogs(t *testing.T) {
	histLog, router := newTestRouter(t, nil, false)

	for i := 0; i < 3; i++ {
		histLog.Push(model.AlertRecord{
			AlertSubmission: validSubmission("alert-" + string(rune('1'+i))),
			ReceivedAt:      "2025-01-01T00:00:00.000Z",
			From:            "conn-1",
		})
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/logs", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /logs status = %d, want 200", rr.Code)
	}

	var body struct {
		Count int                 `json:"count"`
		Logs  []model.AlertRecord `json:"logs"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("GET /logs body: %v", err)
	}
	if body.Count != 3 || len(body.Logs) != 3 {
		t.Fatalf("count=%d len=%d, want 3/3", body.Count, len(body.Logs))
	}
	if body.Logs[0].Message != "alert-3" {
		t.Errorf("logs[0].Message = %q, want newest first", body.Logs[0].Message)
	}
}

func TestListLogsCapped(t *testing.T) {
	histLog, router := newTestRouter(t, nil, false)

	for i := 0; i < 80; i++ {
		histLog.Push(model.AlertRecord{
			AlertSubmission: validSubmission("alert"),
			ReceivedAt:      "2025-01-01T00:00:00.000Z",
			From:            "conn-1",
		})
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/logs", nil))

	var body struct {
		Count int                 `json:"count"`
		Logs  []model.AlertRecord `json:"logs"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("GET /logs body: %v", err)
	}
	// count reports the full history size; logs is the capped snapshot.
	if body.Count != 80 {
		t.Errorf("count = %d, want 80", body.Count)
	}
	if len(body.Logs) != snapshotCount {
		t.Errorf("len(logs) = %d, want %d", len(body.Logs), snapshotCount)
	}
}

func TestClearLogs(t *testing.T) {
	histLog, router := newTestRouter(t, nil, false)
	histLog.Push(model.AlertRecord{AlertSubmission: validSubmission("alert")})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("DELETE", "/logs", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("DELETE /logs status = %d, want 200", rr.Code)
	}
	if histLog.Len() != 0 {
		t.Errorf("history not cleared (len=%d)", histLog.Len())
	}
}

func TestClearLogsDisabledInProduction(t *testing.T) {
	histLog, router := newTestRouter(t, nil, true)
	histLog.Push(model.AlertRecord{AlertSubmission: validSubmission("alert")})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("DELETE", "/logs", nil))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("DELETE /logs status = %d, want 403", rr.Code)
	}
	if histLog.Len() != 1 {
		t.Errorf("production clear mutated history (len=%d)", histLog.Len())
	}
}

func TestNotFound(t *testing.T) {
	_, router := newTestRouter(t, nil, false)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("GET /nope status = %d, want 404", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("404 body: %v", err)
	}
	if body["url"] != "/nope" {
		t.Errorf("404 url field = %q, want /nope", body["url"])
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		origin     string
		wantStatus int
		wantACAO   string
	}{
		{"no origin header passes", []string{"http://localhost:3000"}, "", http.StatusOK, ""},
		{"allowed origin echoed", []string{"http://localhost:3000"}, "http://localhost:3000", http.StatusOK, "http://localhost:3000"},
		{"disallowed origin rejected", []string{"http://localhost:3000"}, "http://evil.example", http.StatusForbidden, ""},
		{"empty list allows any", nil, "http://anywhere.example", http.StatusOK, "http://anywhere.example"},
		{"wildcard allows any", []string{"*"}, "http://anywhere.example", http.StatusOK, "http://anywhere.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, router := newTestRouter(t, tt.origins, false)

			req := httptest.NewRequest("GET", "/ping", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantACAO {
				t.Errorf("ACAO = %q, want %q", got, tt.wantACAO)
			}
		})
	}
}

func TestPreflight(t *testing.T) {
	_, router := newTestRouter(t, []string{"http://localhost:3000"}, false)

	req := httptest.NewRequest("OPTIONS", "/logs", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want 204", rr.Code)
	}
}
