package server

import (
	"net/http"

	"github.com/gobwas/ws"
	"github.com/google/uuid"

	"github.com/conways-glider/aether-db/internal/metrics"
)

// handleWebSocket upgrades the request and runs a session until either side
// of the connection engine stops. The client may pin its identity across
// reconnects with ?client_id=...; otherwise a fresh UUID is minted.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.shuttingDown.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}

	id := s.sessionSeq.Add(1)
	sess := newSession(id, clientID, conn, s)
	s.sessions.Store(id, sess)

	metrics.ConnectionsTotal.Inc()
	metrics.SessionsActive.Set(float64(s.sessions.Size()))
	sess.logger.Info().Str("remote", r.RemoteAddr).Msg("Client connected")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sess.run(s.ctx)
		s.sessions.Delete(id)
		metrics.SessionsActive.Set(float64(s.sessions.Size()))
	}()
}
