// Package game keeps every in-progress pairing and enforces turn order and
// terminal conditions.
package game

import (
	"sync"

	"github.com/iguagile/iguagile-tictactoe/id"
	"github.com/pkg/errors"
)

// MaxGames bounds the engine capacity because game ids travel as one byte.
const MaxGames = 256

// Engine errors.
var (
	ErrGameNotFound     = errors.New("game not found")
	ErrNotAParticipant  = errors.New("session is not a participant")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrInvalidPosition  = errors.New("position must be 1-9")
	ErrCellOccupied     = errors.New("cell already occupied")
	ErrEngineExhausted  = errors.New("no game slots available")
	ErrAlreadyInGame    = errors.New("session already in a game")
	ErrSameParticipants = errors.New("a game needs two distinct sessions")
)

// Game is one pairing. X is always the challenger and moves first.
type Game struct {
	ID    int
	X     id.Session
	O     id.Session
	Board Board
	Turn  Symbol
}

// Symbol returns the side played by session.
func (g *Game) Symbol(session id.Session) (Symbol, error) {
	switch session {
	case g.X:
		return SymbolX, nil
	case g.O:
		return SymbolO, nil
	}
	return 0, ErrNotAParticipant
}

// Engine owns all active games.
type Engine struct {
	games     map[int]*Game
	bySession map[id.Session]int
	generator *id.Generator
	*sync.RWMutex
}

// NewEngine is Engine constructed. capacity is clamped to [1, MaxGames].
func NewEngine(capacity int) *Engine {
	if capacity <= 0 || capacity > MaxGames {
		capacity = MaxGames
	}

	return &Engine{
		games:     make(map[int]*Game),
		bySession: make(map[id.Session]int),
		generator: id.NewGenerator(uint(capacity)),
		RWMutex:   &sync.RWMutex{},
	}
}

// Create starts a game between x and o with an empty board and X to move.
func (e *Engine) Create(x, o id.Session) (int, error) {
	if x == o {
		return 0, ErrSameParticipants
	}

	e.Lock()
	defer e.Unlock()

	if _, ok := e.bySession[x]; ok {
		return 0, ErrAlreadyInGame
	}
	if _, ok := e.bySession[o]; ok {
		return 0, ErrAlreadyInGame
	}

	gameID, err := e.generator.Generate()
	if err != nil {
		return 0, ErrEngineExhausted
	}

	e.games[gameID] = &Game{ID: gameID, X: x, O: o, Turn: SymbolX}
	e.bySession[x] = gameID
	e.bySession[o] = gameID
	return gameID, nil
}

// MakeMove places the mover's mark at position (1-9) and flips the turn.
//
// Checks run in this order: the game exists, session is a participant whose
// turn it is, position is in range, the cell is empty. The first failing check
// decides the error and the board is left untouched.
func (e *Engine) MakeMove(gameID int, session id.Session, position int) (Symbol, error) {
	e.Lock()
	defer e.Unlock()

	g, ok := e.games[gameID]
	if !ok {
		return 0, ErrGameNotFound
	}

	symbol, err := g.Symbol(session)
	if err != nil || symbol != g.Turn {
		return 0, ErrNotYourTurn
	}

	if position < 1 || position > 9 {
		return 0, ErrInvalidPosition
	}

	if g.Board[position-1] != Empty {
		return 0, ErrCellOccupied
	}

	g.Board[position-1] = symbol.Cell()
	g.Turn = symbol.Other()
	return symbol, nil
}

// CheckWinner returns X or O if that mark completes a line, Empty otherwise.
func (e *Engine) CheckWinner(gameID int) (Cell, error) {
	e.RLock()
	defer e.RUnlock()

	g, ok := e.games[gameID]
	if !ok {
		return Empty, ErrGameNotFound
	}
	return g.Board.Winner(), nil
}

// IsDraw reports a full board with no winner.
func (e *Engine) IsDraw(gameID int) (bool, error) {
	e.RLock()
	defer e.RUnlock()

	g, ok := e.games[gameID]
	if !ok {
		return false, ErrGameNotFound
	}
	return g.Board.Winner() == Empty && g.Board.Full(), nil
}

// Destroy removes the game and frees its id.
func (e *Engine) Destroy(gameID int) error {
	e.Lock()
	defer e.Unlock()

	g, ok := e.games[gameID]
	if !ok {
		return ErrGameNotFound
	}

	delete(e.games, gameID)
	delete(e.bySession, g.X)
	delete(e.bySession, g.O)
	e.generator.Free(gameID)
	return nil
}

// BoardOf returns a copy of the game's board.
func (e *Engine) BoardOf(gameID int) (Board, error) {
	e.RLock()
	defer e.RUnlock()

	g, ok := e.games[gameID]
	if !ok {
		return Board{}, ErrGameNotFound
	}
	return g.Board, nil
}

// TurnOf returns the symbol expected to move next.
func (e *Engine) TurnOf(gameID int) (Symbol, error) {
	e.RLock()
	defer e.RUnlock()

	g, ok := e.games[gameID]
	if !ok {
		return 0, ErrGameNotFound
	}
	return g.Turn, nil
}

// ParticipantOf returns the id of the game session plays in.
func (e *Engine) ParticipantOf(session id.Session) (int, error) {
	e.RLock()
	defer e.RUnlock()

	gameID, ok := e.bySession[session]
	if !ok {
		return 0, ErrNotAParticipant
	}
	return gameID, nil
}

// SymbolOf returns the side session plays in the game.
func (e *Engine) SymbolOf(gameID int, session id.Session) (Symbol, error) {
	e.RLock()
	defer e.RUnlock()

	g, ok := e.games[gameID]
	if !ok {
		return 0, ErrGameNotFound
	}
	return g.Symbol(session)
}

// OpponentOf returns the other participant of the game.
func (e *Engine) OpponentOf(gameID int, session id.Session) (id.Session, error) {
	e.RLock()
	defer e.RUnlock()

	g, ok := e.games[gameID]
	if !ok {
		return id.Nil, ErrGameNotFound
	}

	switch session {
	case g.X:
		return g.O, nil
	case g.O:
		return g.X, nil
	}
	return id.Nil, ErrNotAParticipant
}

// Get returns a copy of the game.
func (e *Engine) Get(gameID int) (Game, error) {
	e.RLock()
	defer e.RUnlock()

	g, ok := e.games[gameID]
	if !ok {
		return Game{}, ErrGameNotFound
	}
	return *g, nil
}

// All returns copies of every active game.
func (e *Engine) All() []Game {
	e.RLock()
	defer e.RUnlock()

	games := make([]Game, 0, len(e.games))
	for _, g := range e.games {
		games = append(games, *g)
	}
	return games
}

// Count returns the number of active games.
func (e *Engine) Count() int {
	e.RLock()
	defer e.RUnlock()
	return len(e.games)
}
