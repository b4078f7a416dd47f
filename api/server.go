// Package api exposes the bridge's status surface over HTTP: a liveness
// probe, JSON reporting endpoints backed by the engine and the history
// store, and the Prometheus scrape endpoint.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options wires the server to the rest of the bridge. Ledger and Store may
// be nil; their endpoints answer 503 until configured.
type Options struct {
	Port          int
	Mode          string // "live" or "dry-run", echoed in /api/v1/status
	WriterAddress string
	Engine        StatusProvider
	Ledger        OracleReader
	Store         HistoryStore
}

// Server provides the status HTTP endpoints
type Server struct {
	logger        zerolog.Logger
	server        *http.Server
	engine        StatusProvider
	ledger        OracleReader
	store         HistoryStore
	mode          string
	writerAddress string
	startedAt     time.Time

	mu   sync.Mutex
	addr string
}

// NewServer creates a new Server instance
func NewServer(opts Options, logger zerolog.Logger) *Server {
	s := &Server{
		logger:        logger.With().Str("component", "status_server").Logger(),
		engine:        opts.Engine,
		ledger:        opts.Ledger,
		store:         opts.Store,
		mode:          opts.Mode,
		writerAddress: opts.WriterAddress,
		startedAt:     time.Now(),
	}

	mux := s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: mux,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	if s.server == nil {
		return fmt.Errorf("status server is nil")
	}

	// Channel to signal server startup result
	startupChan := make(chan error, 1)

	go func() {
		// Bind first so a taken port is reported to the caller instead of
		// dying inside the goroutine.
		ln, err := net.Listen("tcp", s.server.Addr)
		if err != nil {
			startupChan <- fmt.Errorf("failed to bind to address %s: %w", s.server.Addr, err)
			return
		}

		s.mu.Lock()
		s.addr = ln.Addr().String()
		s.mu.Unlock()

		// Signal successful startup
		startupChan <- nil

		err = s.server.Serve(ln)
		switch err {
		case nil:
			s.logger.Info().Msg("status server stopped normally")
		case http.ErrServerClosed:
			s.logger.Info().Msg("status server closed gracefully")
		default:
			s.logger.Error().Err(err).Msg("status server error")
		}
	}()

	// Wait for startup result with timeout
	select {
	case err := <-startupChan:
		if err != nil {
			return err
		}
		s.logger.Info().Str("addr", s.Addr()).Msg("status server listening")
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("server startup timeout")
	}
}

// Addr returns the bound listen address, useful when Port was 0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
