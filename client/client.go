// Package client speaks the tic-tac-toe protocol from the player side.
package client

import (
	"context"
	"io"
	"net"

	"github.com/gorilla/websocket"
	"github.com/iguagile/iguagile-tictactoe/data"
	"github.com/iguagile/iguagile-tictactoe/hub"
	"github.com/iguagile/iguagile-tictactoe/pdu"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ReceivedFunc is a function called when a message is received.
type ReceivedFunc func(m data.Message) error

// ErrNotConnected is returned before a connection is set.
var ErrNotConnected = errors.New("client: not connected")

// Client is client for a tic-tac-toe server.
// Receive and Send may run concurrently with each other, not with themselves.
type Client struct {
	conn     hub.Conn
	handlers []ReceivedFunc
	logger   *zap.Logger
}

// New creates an instance of Client.
func New(logger *zap.Logger) *Client {
	return &Client{logger: logger}
}

// DialTCP connects to the server using TCP.
func (c *Client) DialTCP(ctx context.Context, address string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return errors.Wrap(err, "dial")
	}

	c.conn = hub.NewConnTCP(conn, pdu.MaxPayloadSize)
	return nil
}

// DialWebsocket connects to the server's /ws endpoint, e.g. ws://host:port/ws.
func (c *Client) DialWebsocket(ctx context.Context, url string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return errors.Wrap(err, "dial websocket")
	}

	c.conn = hub.NewConnWebsocket(conn, pdu.MaxPayloadSize)
	return nil
}

// SetConnection sets a connection regardless of protocol.
func (c *Client) SetConnection(conn hub.Conn) {
	c.conn = conn
}

// AddReceivedFunc adds a function to be called by Run for every message.
func (c *Client) AddReceivedFunc(f ReceivedFunc) {
	c.handlers = append(c.handlers, f)
}

// Send encodes and writes one message.
func (c *Client) Send(m data.Message) error {
	if c.conn == nil {
		return ErrNotConnected
	}

	b, err := data.Encode(m)
	if err != nil {
		return err
	}
	return c.conn.Write(b)
}

// Receive reads and decodes one message. A payload that does not decode
// yields an error matching data.ErrMalformed or data.ErrUnknownKind and leaves
// the connection usable.
func (c *Client) Receive() (data.Message, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	payload, err := c.conn.Read()
	if err != nil {
		return nil, err
	}
	return data.Decode(payload)
}

// Run receives until the connection closes or ctx is done, calling every
// ReceivedFunc in order. An orderly close by the server returns nil.
func (c *Client) Run(ctx context.Context) error {
	if c.conn == nil {
		return ErrNotConnected
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.conn.Close()
		case <-stop:
		}
	}()

	for {
		m, err := c.Receive()
		switch {
		case err == nil:
		case errors.Is(err, data.ErrMalformed), errors.Is(err, data.ErrUnknownKind):
			c.logger.Debug("drop message", zap.Error(err))
			continue
		case errors.Is(err, io.EOF), ctx.Err() != nil:
			return nil
		default:
			return err
		}

		for _, f := range c.handlers {
			if err := f(m); err != nil {
				return err
			}
		}
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
