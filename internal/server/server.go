// Package server hosts the WebSocket endpoint and the per-connection session
// engine that multiplexes the broadcast bus and the expiring key-value table
// over a single full-duplex connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/conways-glider/aether-db/internal/bus"
	"github.com/conways-glider/aether-db/internal/config"
	"github.com/conways-glider/aether-db/internal/metrics"
	"github.com/conways-glider/aether-db/internal/store"
)

// Server owns the shared state (bus, table, registry) and the listener. One
// session goroutine group runs per accepted WebSocket connection.
type Server struct {
	cfg    config.Config
	logger zerolog.Logger

	bus      *bus.Bus
	table    *store.Table
	registry *store.Registry

	sessions   *xsync.MapOf[int64, *session]
	sessionSeq atomic.Int64

	listener   net.Listener
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startedAt    time.Time
	shuttingDown atomic.Bool
}

func New(cfg config.Config, logger zerolog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      cfg,
		logger:   logger,
		bus:      bus.New(cfg.BroadcastBuffer),
		table:    store.NewTable(logger),
		registry: store.NewRegistry(),
		sessions: xsync.NewMapOf[int64, *session](),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start binds the listener and begins serving. It returns once the listener
// is bound; Serve runs in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = listener
	s.startedAt = time.Now()

	s.table.StartReaper(s.ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())

	s.httpServer = &http.Server{Handler: mux}

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("Server listening")

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()
	return nil
}

// Addr reports the bound listener address. Useful when configured with
// port 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.cfg.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting new connections, then gives live sessions up to
// the configured grace period to drain before forcing their connections
// closed.
func (s *Server) Shutdown() error {
	s.shuttingDown.Store(true)
	s.logger.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("HTTP shutdown did not complete cleanly")
	}

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownGrace):
		s.logger.Warn().Msg("Grace period elapsed, forcing sessions closed")
		s.sessions.Range(func(_ int64, c *session) bool {
			c.conn.Close()
			return true
		})
		<-done
	}

	s.logger.Info().Msg("Shutdown complete")
	return nil
}
