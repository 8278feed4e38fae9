// Package hub multiplexes client connections onto one event loop.
//
// Each connection gets a reader and a writer goroutine. Everything the reader
// receives is handed to the hub goroutine, which is the only caller of the
// Handler, so handlers never need to synchronise among themselves.
package hub

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/iguagile/iguagile-tictactoe/id"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Hub maintains the set of active sessions.
type Hub struct {
	handler  Handler
	sessions map[id.Session]*Session

	// Inbound messages from the sessions.
	receive chan inbound

	// Register requests from new connections.
	register chan *Session

	// Unregister requests from readers.
	unregister chan *Session

	// Closed when Run returns.
	done chan struct{}

	sendQueue      int
	maxMessageSize int
	upgrader       websocket.Upgrader
	log            *zap.Logger
}

type inbound struct {
	session *Session
	payload []byte
}

// New is Hub constructed. sendQueue bounds the outbound backlog per session and
// maxMessageSize bounds every inbound payload.
func New(handler Handler, sendQueue, maxMessageSize int, logger *zap.Logger) *Hub {
	if sendQueue < 1 {
		sendQueue = 1
	}

	return &Hub{
		handler:        handler,
		sessions:       make(map[id.Session]*Session),
		receive:        make(chan inbound),
		register:       make(chan *Session),
		unregister:     make(chan *Session),
		done:           make(chan struct{}),
		sendQueue:      sendQueue,
		maxMessageSize: maxMessageSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: logger,
	}
}

// Run is provides backend synchronize goroutine. It returns when ctx is done,
// after closing every session.
func (h *Hub) Run(ctx context.Context) error {
	defer h.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-h.register:
			h.open(s)
		case s := <-h.unregister:
			h.close(s)
		case in := <-h.receive:
			if _, ok := h.sessions[in.session.id]; ok {
				h.handler.Receive(in.session, in.payload)
			}
		}
	}
}

func (h *Hub) open(s *Session) {
	if err := h.handler.OnConnect(s); err != nil {
		h.log.Info("connection refused",
			zap.String("remote", s.RemoteAddr()),
			zap.Error(err),
		)
		s.shutdown()
		return
	}

	h.sessions[s.id] = s
	h.log.Debug("connection opened",
		zap.Stringer("session", s.id),
		zap.String("remote", s.RemoteAddr()),
	)
}

// close is idempotent; both the reader and shutdown may ask for it.
func (h *Hub) close(s *Session) {
	if _, ok := h.sessions[s.id]; !ok {
		return
	}

	delete(h.sessions, s.id)
	h.handler.OnDisconnect(s)
	s.shutdown()
	h.log.Debug("connection closed", zap.Stringer("session", s.id))
}

func (h *Hub) stop() {
	close(h.done)
	for _, s := range h.sessions {
		h.close(s)
	}
}

// Attach hands conn to the hub and starts its pumps. It reports false, after
// closing conn, when the hub is no longer running.
func (h *Hub) Attach(conn Conn) bool {
	s := newSession(h, conn)
	select {
	case h.register <- s:
	case <-h.done:
		if err := conn.Close(); err != nil {
			h.log.Debug("close", zap.Error(err))
		}
		return false
	}

	go s.writeStart()
	go s.readStart()
	return true
}

const maxAcceptDelay = time.Second

// ServeTCP accepts connections from ln until ctx is done. Accept failures
// such as running out of file descriptors are logged and retried with
// backoff; only a closed listener ends the loop early.
func (h *Hub) ServeTCP(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		if err := ln.Close(); err != nil {
			h.log.Debug("close listener", zap.Error(err))
		}
	}()

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return errors.Wrap(err, "accept")
			}

			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay *= 2
			}
			if delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			h.log.Warn("accept failed, retrying", zap.Duration("delay", delay), zap.Error(err))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		delay = 0

		if !h.Attach(NewConnTCP(conn, h.maxMessageSize)) {
			return nil
		}
	}
}

// ServeWebsocket handles websocket requests from the peer.
func (h *Hub) ServeWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Info("websocket upgrade", zap.Error(err))
		return
	}

	h.Attach(NewConnWebsocket(conn, h.maxMessageSize))
}
