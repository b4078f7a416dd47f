package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

const oracleReadTimeout = 5 * time.Second

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleStatus handles GET /api/v1/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.engine == nil {
		s.writeError(w, http.StatusServiceUnavailable, "engine not configured")
		return
	}

	info := StatusInfo{
		Mode:          s.mode,
		WriterAddress: s.writerAddress,
		StartedAt:     s.startedAt,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Engine:        s.engine.Snapshot(),
	}
	s.writeData(w, info)
}

// handleOracle handles GET /api/v1/oracle
func (s *Server) handleOracle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.ledger == nil {
		s.writeError(w, http.StatusServiceUnavailable, "ledger not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), oracleReadTimeout)
	defer cancel()

	view, err := s.ledger.ReadState(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("oracle read failed")
		s.writeError(w, http.StatusBadGateway, "failed to read oracle state: "+err.Error())
		return
	}
	s.writeData(w, view)
}

// handlePushes handles GET /api/v1/pushes?limit=N
func (s *Server) handlePushes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "history store not configured")
		return
	}

	limit, ok := s.limitParam(w, r)
	if !ok {
		return
	}

	records, err := s.store.RecentPushes(limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("push history query failed")
		s.writeError(w, http.StatusInternalServerError, "failed to load push history")
		return
	}

	views := make([]PushView, 0, len(records))
	for _, rec := range records {
		views = append(views, pushView(rec))
	}
	s.writeData(w, views)
}

// handleCycles handles GET /api/v1/cycles?limit=N
func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "history store not configured")
		return
	}

	limit, ok := s.limitParam(w, r)
	if !ok {
		return
	}

	records, err := s.store.RecentCycles(limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("cycle history query failed")
		s.writeError(w, http.StatusInternalServerError, "failed to load cycle history")
		return
	}

	views := make([]CycleView, 0, len(records))
	for _, rec := range records {
		views = append(views, cycleView(rec))
	}
	s.writeData(w, views)
}

// limitParam parses the optional limit query parameter. A missing parameter
// falls back to the store default; anything that is not a positive integer
// is a client error.
func (s *Server) limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return limit, true
}

func (s *Server) writeData(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Response{Success: true, Data: data})
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Success: false, Error: msg})
}
