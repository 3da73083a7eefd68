// Package api exposes the estimator's status over HTTP for ground-station
// tooling, plus a go-echarts debug chart of recorded vibration metrics.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/banshee-data/attitude.report/internal/ekf"
	"github.com/banshee-data/attitude.report/internal/flightdb"
)

// Estimator is the read-only view of the facade the API serves. The daemon
// wraps the real estimator with its own locking before handing it over.
type Estimator interface {
	Status() ekf.Status
	Params() ekf.Params
	Counters() ekf.Counters
}

type Server struct {
	est Estimator
	db  *flightdb.FlightDB
}

// NewServer creates an API server. db may be nil when recording is disabled;
// the session and chart endpoints then report 503.
func NewServer(est Estimator, db *flightdb.FlightDB) *Server {
	return &Server{est: est, db: db}
}

// ServeMux returns the route table, intended to be mounted under /api.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ekf/status", s.statusHandler)
	mux.HandleFunc("/ekf/params", s.paramsHandler)
	mux.HandleFunc("/ekf/counters", s.countersHandler)
	mux.HandleFunc("/sessions", s.sessionsHandler)
	mux.HandleFunc("/vibe/chart", s.vibeChartHandler)
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.est.Status())
}

func (s *Server) paramsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.est.Params())
}

func (s *Server) countersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.est.Counters())
}

func (s *Server) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		http.Error(w, "Flight recorder not configured", http.StatusServiceUnavailable)
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	sessions, err := s.db.Sessions(limit)
	if err != nil {
		http.Error(w, "Failed to query sessions", http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []flightdb.Session{}
	}
	s.writeJSON(w, sessions)
}
