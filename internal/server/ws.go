package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chatrelay/chatrelay/internal/chat"
)

const closeWriteTimeout = 5 * time.Second

// streamSocket handles GET /ws: the streaming session transport.
//
// Admission order is fixed: upgrade, claim a capacity slot, then
// authenticate. The slot is claimed before authentication so that a flood of
// bad credentials still counts against capacity while it is being rejected;
// the slot is released exactly once on every exit path.
func (s *Server) streamSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return s.originAllowed(r.Header.Get("Origin"))
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	if err := s.limiter.Acquire(); err != nil {
		s.log.Warn().Msg("streaming connection refused: capacity exceeded")
		s.closeSocket(conn, websocket.CloseTryAgainLater, "capacity exceeded")
		return
	}
	defer s.limiter.Release()

	user, err := s.auth.Authenticate(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		s.closeSocket(conn, websocket.ClosePolicyViolation, "invalid credential")
		return
	}

	if s.chat == nil {
		s.closeSocket(conn, websocket.CloseTryAgainLater, "service unavailable")
		return
	}

	log := s.log.With().Int64("user_id", user.ID).Logger()
	log.Info().Int("active", s.limiter.Active()).Msg("streaming session opened")

	sess := &chat.Session{
		User:          user,
		Conn:          conn,
		Store:         s.store,
		Service:       s.chat,
		Bus:           s.bus,
		HistoryWindow: s.cfg.HistoryWindow,
		Log:           log,
	}
	sess.Run(r.Context())

	log.Info().Msg("streaming session closed")
	s.closeSocket(conn, websocket.CloseNormalClosure, "")
}

// closeSocket sends a close frame with the given code and reason. Errors are
// ignored: the peer may already be gone.
func (s *Server) closeSocket(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(closeWriteTimeout)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
}

// originAllowed checks the Origin header against the configured allowlist.
// Browser-less clients send no Origin and are always admitted.
func (s *Server) originAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
