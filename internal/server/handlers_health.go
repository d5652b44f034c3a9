package server

import (
	"net/http"

	"github.com/chatrelay/chatrelay/pkg/types"
)

// root handles GET / with a minimal liveness page.
func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("<html><body><h1>chatrelay</h1><p>Streaming conversational relay is running.</p></body></html>"))
}

// health handles GET /health: a per-component report with an ok/degraded/
// error rollup. A missing chat service degrades; a failing database errors.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	checks := make([]types.HealthComponent, 0, 2)
	overall := types.HealthOK

	dbCheck := types.HealthComponent{Component: "database", Status: types.HealthOK}
	if err := s.store.Ping(r.Context()); err != nil {
		dbCheck.Status = types.HealthError
		dbCheck.Detail = err.Error()
		overall = types.HealthError
	}
	checks = append(checks, dbCheck)

	chatCheck := types.HealthComponent{Component: "chat", Status: types.HealthOK}
	if s.chat == nil {
		chatCheck.Status = types.HealthDegraded
		chatCheck.Detail = "no completion backend configured"
		if overall == types.HealthOK {
			overall = types.HealthDegraded
		}
	}
	checks = append(checks, chatCheck)

	status := http.StatusOK
	if overall == types.HealthError {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, types.HealthStatus{Status: overall, Checks: checks})
}
