package tictactoe

import (
	"github.com/iguagile/iguagile-tictactoe/data"
	"github.com/iguagile/iguagile-tictactoe/game"
	"github.com/iguagile/iguagile-tictactoe/hub"
	"github.com/iguagile/iguagile-tictactoe/id"
	"github.com/iguagile/iguagile-tictactoe/registry"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrServerFull refuses a connection beyond max_clients.
var ErrServerFull = errors.New("server full")

// Error texts sent in ERROR messages.
const (
	textServerFull        = "server full"
	textNotRegistered     = "not registered"
	textAlreadyRegistered = "already registered"
	textNoGameSlots       = "no game slots available"
)

// Dispatcher routes decoded client messages against the registry and the
// engine. It implements hub.Handler, so every call runs on the hub goroutine.
type Dispatcher struct {
	registry   *registry.Registry
	engine     *game.Engine
	store      Store
	metrics    *Metrics
	sessions   map[id.Session]*hub.Session
	maxClients int
	log        *zap.Logger
}

// NewDispatcher is Dispatcher constructed.
func NewDispatcher(reg *registry.Registry, engine *game.Engine, store Store, metrics *Metrics, maxClients int, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry:   reg,
		engine:     engine,
		store:      store,
		metrics:    metrics,
		sessions:   make(map[id.Session]*hub.Session),
		maxClients: maxClients,
		log:        logger,
	}
}

// OnConnect admits the session until max_clients connections are open.
func (d *Dispatcher) OnConnect(s *hub.Session) error {
	if len(d.sessions) >= d.maxClients {
		d.send(s, &data.Error{Text: textServerFull})
		return ErrServerFull
	}

	d.sessions[s.ID()] = s
	d.metrics.connections.Inc()
	return nil
}

// Receive decodes one payload and runs its handler.
func (d *Dispatcher) Receive(s *hub.Session, payload []byte) {
	message, err := data.Decode(payload)
	if err != nil {
		d.metrics.dropped()
		d.log.Debug("drop message", zap.Stringer("session", s.ID()), zap.Error(err))
		return
	}

	if !message.Kind().FromClient() {
		d.metrics.dropped()
		d.log.Debug("drop server message", zap.Stringer("session", s.ID()), zap.Stringer("kind", message.Kind()))
		return
	}
	d.metrics.received(message.Kind())

	user, registered := d.registry.FindBySession(s.ID())
	if m, ok := message.(*data.InitialConn); ok {
		if registered {
			d.send(s, &data.Error{Text: textAlreadyRegistered})
			return
		}
		d.initialConn(s, m)
		return
	}

	if !registered {
		d.send(s, &data.Error{Text: textNotRegistered})
		return
	}

	switch m := message.(type) {
	case *data.ListReq:
		d.list(s)
	case *data.GameStartReq:
		d.gameStart(s, user, m)
	case *data.Move:
		d.move(s, m)
	}
}

// OnDisconnect ends the session's game in the opponent's favour and releases
// the handle.
func (d *Dispatcher) OnDisconnect(s *hub.Session) {
	delete(d.sessions, s.ID())
	d.metrics.connections.Dec()

	if user, ok := d.registry.Unregister(s.ID()); ok {
		d.metrics.users.Set(float64(d.registry.Count()))
		if err := d.store.UserOffline(user.Name); err != nil {
			d.log.Warn("store", zap.Error(err))
		}
		d.log.Info("player disconnected", zap.String("name", user.Name))
	}

	if gameID, err := d.engine.ParticipantOf(s.ID()); err == nil {
		result := data.ResultODisconnected
		if symbol, err := d.engine.SymbolOf(gameID, s.ID()); err == nil && symbol == game.SymbolX {
			result = data.ResultXDisconnected
		}
		d.finish(gameID, result)
	}
}

func (d *Dispatcher) initialConn(s *hub.Session, m *data.InitialConn) {
	if !data.ValidName(m.Name) {
		d.log.Info("username rejected", zap.String("name", m.Name), zap.String("reason", "invalid"))
		d.send(s, &data.ConnReject{Name: m.Name})
		return
	}

	if err := d.registry.Register(m.Name, s.ID()); err != nil {
		d.log.Info("username rejected", zap.String("name", m.Name), zap.Error(err))
		d.send(s, &data.ConnReject{Name: m.Name})
		return
	}

	d.metrics.users.Set(float64(d.registry.Count()))
	if err := d.store.UserOnline(m.Name); err != nil {
		d.log.Warn("store", zap.Error(err))
	}
	d.send(s, &data.ConnAccept{})
	d.log.Info("player connected", zap.String("name", m.Name), zap.String("remote", s.RemoteAddr()))
}

func (d *Dispatcher) list(s *hub.Session) {
	names := d.registry.List()
	reply := make([]data.Message, 0, len(names)+2)
	reply = append(reply, &data.ListCount{Count: uint32(len(names))})
	for _, name := range names {
		reply = append(reply, &data.ListUser{Name: name})
	}
	reply = append(reply, &data.ListDone{})
	d.send(s, reply...)
}

func (d *Dispatcher) gameStart(s *hub.Session, challenger registry.User, m *data.GameStartReq) {
	refuse := func(code data.StartError) {
		d.send(s, &data.GameStartErr{Code: code, Opponent: m.Opponent})
	}

	if !data.ValidName(m.Opponent) {
		refuse(data.StartNoSuchPlayer)
		return
	}
	if m.Opponent == challenger.Name {
		refuse(data.StartSelfChallenge)
		return
	}

	opponent, ok := d.registry.FindByName(m.Opponent)
	if !ok {
		refuse(data.StartNoSuchPlayer)
		return
	}
	if challenger.Availability != registry.Available {
		refuse(data.StartSelfBusy)
		return
	}
	if opponent.Availability != registry.Available {
		refuse(data.StartOpponentBusy)
		return
	}

	gameID, err := d.engine.Create(challenger.Session, opponent.Session)
	if err != nil {
		d.log.Warn("create game", zap.Error(err))
		d.send(s, &data.Error{Text: textNoGameSlots})
		return
	}

	d.setAvailability(challenger.Name, registry.InGame)
	d.setAvailability(opponent.Name, registry.InGame)
	d.metrics.games.Set(float64(d.engine.Count()))
	if err := d.store.GameStarted(gameID, challenger.Name, opponent.Name); err != nil {
		d.log.Warn("store", zap.Error(err))
	}

	d.send(s, &data.GameStarted{Opponent: opponent.Name, Symbol: game.SymbolX, GameID: byte(gameID)})
	d.sendTo(opponent.Session, &data.GameStarted{Opponent: challenger.Name, Symbol: game.SymbolO, GameID: byte(gameID)})
	d.log.Info("game started",
		zap.Int("game", gameID),
		zap.String("x", challenger.Name),
		zap.String("o", opponent.Name),
	)
}

var moveErrors = map[error]data.MoveError{
	game.ErrNotYourTurn:     data.MoveNotYourTurn,
	game.ErrCellOccupied:    data.MoveOccupied,
	game.ErrInvalidPosition: data.MoveBadPosition,
	game.ErrGameNotFound:    data.MoveNotInGame,
	game.ErrNotAParticipant: data.MoveNotInGame,
}

func (d *Dispatcher) move(s *hub.Session, m *data.Move) {
	gameID, err := d.engine.ParticipantOf(s.ID())
	if err != nil || gameID != int(m.GameID) {
		d.send(s, &data.MoveInvalid{Code: data.MoveNotInGame})
		return
	}

	symbol, err := d.engine.MakeMove(gameID, s.ID(), int(m.Position))
	if err != nil {
		code, ok := moveErrors[err]
		if !ok {
			code = data.MoveNotInGame
		}
		d.send(s, &data.MoveInvalid{Code: code})
		return
	}

	g, err := d.engine.Get(gameID)
	if err != nil {
		d.log.Error("game vanished", zap.Int("game", gameID), zap.Error(err))
		return
	}

	update := &data.BoardUpdate{
		GameID:   m.GameID,
		Position: m.Position,
		WhoMoved: symbol,
		Board:    g.Board,
		NextTurn: g.Turn,
	}
	d.sendTo(g.X, update)
	d.sendTo(g.O, update)

	winner, err := d.engine.CheckWinner(gameID)
	if err != nil {
		return
	}
	switch winner {
	case game.X:
		d.finish(gameID, data.ResultXWon)
	case game.O:
		d.finish(gameID, data.ResultOWon)
	default:
		if draw, _ := d.engine.IsDraw(gameID); draw {
			d.finish(gameID, data.ResultDraw)
		}
	}
}

// finish destroys the game, frees both players and sends GAME_OVER to every
// participant still connected.
func (d *Dispatcher) finish(gameID int, result data.Result) {
	g, err := d.engine.Get(gameID)
	if err != nil {
		return
	}

	if err := d.engine.Destroy(gameID); err != nil {
		d.log.Error("destroy game", zap.Int("game", gameID), zap.Error(err))
	}

	for _, session := range []id.Session{g.X, g.O} {
		if user, ok := d.registry.FindBySession(session); ok {
			d.setAvailability(user.Name, registry.Available)
		}
	}

	d.metrics.games.Set(float64(d.engine.Count()))
	d.metrics.finished(result)
	if err := d.store.GameEnded(gameID); err != nil {
		d.log.Warn("store", zap.Error(err))
	}

	over := &data.GameOver{GameID: byte(gameID), Result: result, Board: g.Board}
	d.sendTo(g.X, over)
	d.sendTo(g.O, over)
	d.log.Info("game over", zap.Int("game", gameID), zap.Stringer("result", result))
}

func (d *Dispatcher) setAvailability(name string, a registry.Availability) {
	if err := d.registry.SetAvailability(name, a); err != nil {
		d.log.Error("set availability", zap.String("name", name), zap.Error(err))
		return
	}
	if err := d.store.SetAvailability(name, a); err != nil {
		d.log.Warn("store", zap.Error(err))
	}
}

func (d *Dispatcher) sendTo(session id.Session, m data.Message) {
	if s, ok := d.sessions[session]; ok {
		d.send(s, m)
	}
}

// send queues messages as one unit so a multi-message reply never overflows
// the session queue part way through.
func (d *Dispatcher) send(s *hub.Session, messages ...data.Message) {
	payloads := make([][]byte, 0, len(messages))
	kinds := make([]data.Kind, 0, len(messages))
	for _, m := range messages {
		b, err := data.Encode(m)
		if err != nil {
			d.log.Error("encode", zap.Stringer("kind", m.Kind()), zap.Error(err))
			continue
		}
		payloads = append(payloads, b)
		kinds = append(kinds, m.Kind())
	}

	if !s.Send(payloads...) {
		return
	}
	for _, k := range kinds {
		d.metrics.sent(k)
	}
}
