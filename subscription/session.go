package subscription

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	sendBufferSize = 256
	writeTimeout   = 10 * time.Second
	pingInterval   = 30 * time.Second
)

// Session is one subscriber's websocket connection, identified uniquely for
// the lifetime of the connection and carrying the entitlements granted to
// its account.
type Session struct {
	ID           string
	Account      string
	Entitlements *EntitlementSet

	mu     sync.Mutex
	conn   *websocket.Conn
	send   chan any
	closed bool
	done   chan struct{}
}

// NewSession wraps an accepted websocket connection. The caller must invoke
// Run to start the write pump before messages can be delivered.
func NewSession(conn *websocket.Conn, account string, entitlements *EntitlementSet) *Session {
	return &Session{
		ID:           uuid.NewString(),
		Account:      account,
		Entitlements: entitlements,
		conn:         conn,
		send:         make(chan any, sendBufferSize),
		done:         make(chan struct{}),
	}
}

// Run drains the send channel into the websocket connection until Close is
// called or a write fails, sending periodic pings to detect dead peers.
func (s *Session) Run() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-s.send:
			if !ok {
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteJSON(msg); err != nil {
				log.Warn().Err(err).Str("session", s.ID).Msg("session write failed, closing")
				s.Close()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		}
	}
}

// Send enqueues a message for delivery; it drops the message rather than
// blocking if the subscriber is too far behind, logging the slow-consumer
// condition.
func (s *Session) Send(message any) {
	select {
	case s.send <- message:
	default:
		log.Warn().Str("session", s.ID).Msg("slow consumer, dropping message")
	}
}

// Close shuts down the write pump and underlying connection. Safe to call
// more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	s.conn.Close()
}
