// Package server exposes the fleet over a small HTTP observability
// surface. It is read-only; all control flows through in-game chat.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/groblegark/stayput/internal/fleet"
)

// Fleet is the slice of the fleet manager the server reads.
type Fleet interface {
	Snapshot() []fleet.SlotStatus
}

type Server struct {
	fleet  Fleet
	logger *slog.Logger
}

func New(f Fleet, logger *slog.Logger) *Server {
	return &Server{fleet: f, logger: logger}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/fleet", s.handleFleet)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	return mux
}

// handleFleet handles GET /v1/fleet.
// Returns a point-in-time view of every slot, primary first.
func (s *Server) handleFleet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"slots": s.fleet.Snapshot()})
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
