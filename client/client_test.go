package client

import (
	"context"
	"net"
	"testing"

	"github.com/iguagile/iguagile-tictactoe/data"
	"github.com/iguagile/iguagile-tictactoe/hub"
	"github.com/iguagile/iguagile-tictactoe/pdu"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotConnected(t *testing.T) {
	c := New(zap.NewNop())
	assert.Equal(t, ErrNotConnected, c.Send(&data.ListReq{}))
	_, err := c.Receive()
	assert.Equal(t, ErrNotConnected, err)
	assert.Equal(t, ErrNotConnected, c.Run(context.Background()))
	assert.NoError(t, c.Close())
}

func TestSend(t *testing.T) {
	server, peer := net.Pipe()
	defer server.Close()

	c := New(zap.NewNop())
	c.SetConnection(hub.NewConnTCP(peer, pdu.MaxPayloadSize))
	defer c.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- c.Send(&data.GameStartReq{Opponent: "bob"}) }()

	payload, err := pdu.Receive(server, pdu.MaxPayloadSize)
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(data.KindGameStartReq), 3, 'b', 'o', 'b'}, payload)
	assert.NoError(t, <-errCh)
}

func TestRun(t *testing.T) {
	server, peer := net.Pipe()

	c := New(zap.NewNop())
	c.SetConnection(hub.NewConnTCP(peer, pdu.MaxPayloadSize))
	defer c.Close()

	var received []data.Message
	c.AddReceivedFunc(func(m data.Message) error {
		received = append(received, m)
		return nil
	})

	go func() {
		defer server.Close()
		for _, m := range []data.Message{&data.ListCount{Count: 1}, &data.ListUser{Name: "alice"}} {
			b, err := data.Encode(m)
			if err != nil {
				return
			}
			if err := pdu.Send(server, b); err != nil {
				return
			}
		}
		// unknown kinds are skipped
		_ = pdu.Send(server, []byte{99})
		b, _ := data.Encode(&data.ListDone{})
		_ = pdu.Send(server, b)
	}()

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, []data.Message{
		&data.ListCount{Count: 1},
		&data.ListUser{Name: "alice"},
		&data.ListDone{},
	}, received)
}

func TestRunHandlerError(t *testing.T) {
	server, peer := net.Pipe()
	defer server.Close()

	c := New(zap.NewNop())
	c.SetConnection(hub.NewConnTCP(peer, pdu.MaxPayloadSize))
	defer c.Close()

	stop := errors.New("stop")
	c.AddReceivedFunc(func(data.Message) error { return stop })

	go func() {
		b, _ := data.Encode(&data.ConnAccept{})
		_ = pdu.Send(server, b)
	}()

	assert.Equal(t, stop, c.Run(context.Background()))
}
