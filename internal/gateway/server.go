package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/sheikh-saqib/transfer-saga/internal/platform/metrics"
)

// subscribeMessage is the only message clients send. There is no
// unsubscribe message; unsubscription is implicit on connection close.
type subscribeMessage struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// Server accepts WebSocket connections and manages their subscriptions.
type Server struct {
	registry *Registry
	log      *slog.Logger
	metrics  *metrics.Gateway
	upgrader websocket.Upgrader
}

func NewServer(registry *Registry, log *slog.Logger, m *metrics.Gateway) *Server {
	return &Server{
		registry: registry,
		log:      log,
		metrics:  m,
		upgrader: websocket.Upgrader{
			// Browser clients connect from the UI origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler upgrades the request and serves the connection until it closes.
func (s *Server) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wc, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Error("ws upgrade failed", "remote", r.RemoteAddr, "err", err)
			return
		}

		sess := newSession(wc)
		s.metrics.ActiveConnections.Inc()
		go sess.writeLoop()

		s.readLoop(sess)

		s.registry.Unsubscribe(sess)
		sess.stop()
		s.metrics.ActiveConnections.Dec()
	}
}

// readLoop consumes client messages until the connection closes. Malformed
// messages are logged and dropped; the connection stays open.
func (s *Server) readLoop(sess *session) {
	for {
		_, data, err := sess.wc.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("ws read ended", "err", err)
			}
			return
		}

		var msg subscribeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn("dropping malformed client message", "err", err)
			continue
		}
		if msg.Type != "subscribe" || msg.UserID == "" {
			s.log.Warn("dropping unsupported client message", "type", msg.Type)
			continue
		}

		s.registry.Subscribe(msg.UserID, sess)
		s.log.Info("client subscribed", "userId", msg.UserID)
	}
}
