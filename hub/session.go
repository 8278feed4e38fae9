package hub

import (
	"io"

	"github.com/iguagile/iguagile-tictactoe/id"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Session is a middleman between the connection and the hub.
type Session struct {
	id   id.Session
	conn Conn
	hub  *Hub
	send chan [][]byte

	// owned by the hub goroutine
	closed  bool
	aborted bool
}

func newSession(h *Hub, conn Conn) *Session {
	return &Session{
		id:   id.NewSession(),
		conn: conn,
		hub:  h,
		send: make(chan [][]byte, h.sendQueue),
	}
}

// ID returns the opaque session id.
func (s *Session) ID() id.Session {
	return s.id
}

// RemoteAddr returns the peer address.
func (s *Session) RemoteAddr() string {
	return s.conn.RemoteAddr()
}

// Send enqueues payloads without blocking. It must only be called from a
// Handler method. Payloads passed together take one queue slot and are
// written in order. When the queue is full the connection is dropped and the
// hub tears the session down once its reader notices.
func (s *Session) Send(payloads ...[]byte) bool {
	if s.closed || len(payloads) == 0 {
		return false
	}

	select {
	case s.send <- payloads:
		return true
	default:
		s.abort()
		return false
	}
}

func (s *Session) abort() {
	if s.aborted {
		return
	}
	s.aborted = true

	s.hub.log.Warn("send queue full, dropping connection",
		zap.Stringer("session", s.id),
		zap.String("remote", s.conn.RemoteAddr()),
	)
	if err := s.conn.Close(); err != nil {
		s.hub.log.Debug("close", zap.Error(err))
	}
}

// shutdown closes the send queue; the writer flushes it and closes the connection.
func (s *Session) shutdown() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

func (s *Session) readStart() {
	defer func() {
		select {
		case s.hub.unregister <- s:
		case <-s.hub.done:
		}
	}()

	for {
		message, err := s.conn.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.hub.log.Debug("peer closed", zap.Stringer("session", s.id))
			} else {
				s.hub.log.Info("read failed", zap.Stringer("session", s.id), zap.Error(err))
			}
			return
		}

		select {
		case s.hub.receive <- inbound{session: s, payload: message}:
		case <-s.hub.done:
			return
		}
	}
}

func (s *Session) writeStart() {
	defer func() {
		if err := s.conn.Close(); err != nil {
			s.hub.log.Debug("close", zap.Error(err))
		}
	}()

	for batch := range s.send {
		for _, message := range batch {
			if err := s.conn.Write(message); err != nil {
				s.hub.log.Info("write failed", zap.Stringer("session", s.id), zap.Error(err))
				return
			}
		}
	}
}
