package hub

import (
	"bufio"
	"io"
	"net"

	"github.com/gorilla/websocket"
	"github.com/iguagile/iguagile-tictactoe/pdu"
	"github.com/pkg/errors"
)

// Conn carries whole payloads in both directions.
// Read returns io.EOF when the peer closed the connection cleanly.
type Conn interface {
	Read() ([]byte, error)
	Write(message []byte) error
	Close() error
	RemoteAddr() string
}

// ConnTCP is a wrapper of tcp connection framed with pdu.
type ConnTCP struct {
	conn           net.Conn
	reader         *bufio.Reader
	maxMessageSize int
}

// NewConnTCP wraps conn. Payloads larger than maxMessageSize fail Read.
func NewConnTCP(conn net.Conn, maxMessageSize int) *ConnTCP {
	return &ConnTCP{
		conn:           conn,
		reader:         bufio.NewReader(conn),
		maxMessageSize: maxMessageSize,
	}
}

// Write writes a message.
func (c *ConnTCP) Write(message []byte) error {
	return pdu.Send(c.conn, message)
}

// Read reads a message.
func (c *ConnTCP) Read() ([]byte, error) {
	return pdu.Receive(c.reader, c.maxMessageSize)
}

// Close closes the connection.
func (c *ConnTCP) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the peer address.
func (c *ConnTCP) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// ConnWebsocket is a wrapper of websocket connection.
// One binary message carries exactly one payload.
type ConnWebsocket struct {
	conn *websocket.Conn
}

// NewConnWebsocket wraps conn and limits inbound messages to maxMessageSize.
func NewConnWebsocket(conn *websocket.Conn, maxMessageSize int) *ConnWebsocket {
	conn.SetReadLimit(int64(maxMessageSize))
	return &ConnWebsocket{conn: conn}
}

// Write writes a message.
func (c *ConnWebsocket) Write(message []byte) error {
	if err := c.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
		return errors.Wrap(pdu.ErrTransport, err.Error())
	}
	return nil
}

// Read reads a message.
func (c *ConnWebsocket) Read() ([]byte, error) {
	_, message, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		return nil, errors.Wrap(pdu.ErrTransport, err.Error())
	}

	return message, nil
}

// Close closes the connection.
func (c *ConnWebsocket) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the peer address.
func (c *ConnWebsocket) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
