package tictactoe

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/iguagile/iguagile-tictactoe/client"
	"github.com/iguagile/iguagile-tictactoe/data"
	"github.com/iguagile/iguagile-tictactoe/game"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startServer(t *testing.T) (*Server, context.CancelFunc, chan error) {
	t.Helper()
	config := DefaultConfig()
	config.Host = "127.0.0.1"
	config.AdminAddr = "127.0.0.1:0"
	config.Websocket = true

	server, err := NewServer(config, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- server.Run(ctx) }()
	t.Cleanup(cancel)
	return server, cancel, errCh
}

func dial(t *testing.T, server *Server) *client.Client {
	t.Helper()
	c := client.New(zap.NewNop())
	require.NoError(t, c.DialTCP(context.Background(), server.Addr().String()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func recv(t *testing.T, c *client.Client) (data.Message, error) {
	t.Helper()
	type result struct {
		m   data.Message
		err error
	}
	ch := make(chan result, 1)
	go func() {
		m, err := c.Receive()
		ch <- result{m, err}
	}()

	select {
	case r := <-ch:
		return r.m, r.err
	case <-time.After(timeout):
		t.Fatal("no message received")
	}
	return nil, nil
}

func expect(t *testing.T, c *client.Client, want data.Message) {
	t.Helper()
	m, err := recv(t, c)
	require.NoError(t, err)
	assert.Equal(t, want, m)
}

func login(t *testing.T, server *Server, name string) *client.Client {
	t.Helper()
	c := dial(t, server)
	require.NoError(t, c.Send(&data.InitialConn{Name: name}))
	expect(t, c, &data.ConnAccept{})
	return c
}

func TestScenarioRegistration(t *testing.T) {
	server, _, _ := startServer(t)
	assert.NotZero(t, server.Port())

	login(t, server, "alice")

	second := dial(t, server)
	require.NoError(t, second.Send(&data.InitialConn{Name: "alice"}))
	expect(t, second, &data.ConnReject{Name: "alice"})
}

func TestScenarioGame(t *testing.T) {
	server, _, _ := startServer(t)
	alice := login(t, server, "alice")
	bob := login(t, server, "bob")

	require.NoError(t, alice.Send(&data.GameStartReq{Opponent: "bob"}))
	m, err := recv(t, alice)
	require.NoError(t, err)
	started, ok := m.(*data.GameStarted)
	require.True(t, ok)
	assert.Equal(t, "bob", started.Opponent)
	assert.Equal(t, game.SymbolX, started.Symbol)
	gameID := started.GameID
	expect(t, bob, &data.GameStarted{Opponent: "alice", Symbol: game.SymbolO, GameID: gameID})

	require.NoError(t, alice.Send(&data.Move{GameID: gameID, Position: 5}))
	update := &data.BoardUpdate{
		GameID:   gameID,
		Position: 5,
		WhoMoved: game.SymbolX,
		Board:    game.Board{4: game.X},
		NextTurn: game.SymbolO,
	}
	expect(t, alice, update)
	expect(t, bob, update)

	var board game.Board
	board[4] = game.X
	moves := []struct {
		c        *client.Client
		position byte
		symbol   game.Symbol
	}{
		{bob, 4, game.SymbolO}, {alice, 1, game.SymbolX}, {bob, 6, game.SymbolO},
		{alice, 2, game.SymbolX}, {bob, 7, game.SymbolO}, {alice, 3, game.SymbolX},
	}
	for _, v := range moves {
		board[v.position-1] = v.symbol.Cell()
		require.NoError(t, v.c.Send(&data.Move{GameID: gameID, Position: v.position}))
		for _, c := range []*client.Client{alice, bob} {
			m, err := recv(t, c)
			require.NoError(t, err)
			assert.IsType(t, &data.BoardUpdate{}, m)
		}
	}

	over := &data.GameOver{GameID: gameID, Result: data.ResultXWon, Board: board}
	expect(t, alice, over)
	expect(t, bob, over)

	_, err = server.engine.BoardOf(int(gameID))
	assert.Equal(t, game.ErrGameNotFound, err)
}

func TestScenarioDisconnect(t *testing.T) {
	server, _, _ := startServer(t)
	alice := login(t, server, "alice")
	bob := login(t, server, "bob")

	require.NoError(t, alice.Send(&data.GameStartReq{Opponent: "bob"}))
	m, err := recv(t, alice)
	require.NoError(t, err)
	gameID := m.(*data.GameStarted).GameID
	_, err = recv(t, bob)
	require.NoError(t, err)

	require.NoError(t, alice.Close())
	expect(t, bob, &data.GameOver{GameID: gameID, Result: data.ResultXDisconnected})
}

func TestWebsocketPlayer(t *testing.T) {
	server, _, _ := startServer(t)
	require.NotNil(t, server.AdminAddr())

	ws := client.New(zap.NewNop())
	require.NoError(t, ws.DialWebsocket(context.Background(), "ws://"+server.AdminAddr().String()+"/ws"))
	defer ws.Close()

	require.NoError(t, ws.Send(&data.InitialConn{Name: "webby"}))
	expect(t, ws, &data.ConnAccept{})

	tcp := login(t, server, "alice")
	require.NoError(t, tcp.Send(&data.ListReq{}))
	expect(t, tcp, &data.ListCount{Count: 2})
	expect(t, tcp, &data.ListUser{Name: "alice"})
	expect(t, tcp, &data.ListUser{Name: "webby"})
	expect(t, tcp, &data.ListDone{})

	require.NoError(t, ws.Send(&data.GameStartReq{Opponent: "alice"}))
	m, err := recv(t, ws)
	require.NoError(t, err)
	gameID := m.(*data.GameStarted).GameID
	expect(t, tcp, &data.GameStarted{Opponent: "webby", Symbol: game.SymbolO, GameID: gameID})
}

func TestServerShutdown(t *testing.T) {
	server, cancel, errCh := startServer(t)
	c := login(t, server, "alice")

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(timeout):
		t.Fatal("Run did not return")
	}

	_, err := recv(t, c)
	assert.True(t, errors.Is(err, io.EOF), "got %v", err)
}
