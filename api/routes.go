package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes configures all HTTP routes for the status server
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", s.handleHealth)

	// API v1 endpoints
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/oracle", s.handleOracle)
	mux.HandleFunc("/api/v1/pushes", s.handlePushes)
	mux.HandleFunc("/api/v1/cycles", s.handleCycles)

	// Prometheus scrape endpoint
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}
