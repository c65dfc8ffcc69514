package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 60 * time.Second
	sendBuffer   = 32
)

// session wraps one WebSocket connection. A single writer goroutine owns
// the socket's write side; routed events are handed over through the send
// channel so Push never blocks the routing path.
type session struct {
	wc   *websocket.Conn
	send chan []byte

	mu     sync.Mutex // guards closed and the send channel's lifecycle
	closed bool
}

func newSession(wc *websocket.Conn) *session {
	return &session{wc: wc, send: make(chan []byte, sendBuffer)}
}

// Push queues msg for delivery. A session whose buffer is full drops the
// message rather than stall routing for other connections.
func (s *session) Push(msg []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

// stop closes the send channel exactly once, after which Push refuses
// messages. Routing may race with connection close, so the channel must not
// be closed while a Push is in flight.
func (s *session) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// writeLoop drains the send channel and keeps the connection alive with
// pings. It exits when the send channel is closed or a write fails.
func (s *session) writeLoop() {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	defer s.wc.Close()

	for {
		select {
		case msg, ok := <-s.send:
			if !ok {
				s.wc.SetWriteDeadline(time.Now().Add(writeTimeout))
				s.wc.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			s.wc.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.wc.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-t.C:
			s.wc.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.wc.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}

var _ Sink = (*session)(nil)
