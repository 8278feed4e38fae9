// Package data encodes and decodes the protocol messages carried inside PDUs.
//
// Every message starts with a one-byte Kind. Strings are preceded by a
// one-byte length and are never terminated.
package data

import (
	"encoding/binary"
	"fmt"

	"github.com/iguagile/iguagile-tictactoe/game"
	"github.com/pkg/errors"
)

// Kind identifies a message shape.
type Kind byte

// Message kinds
const (
	KindInitialConn  Kind = 1
	KindConnAccept   Kind = 2
	KindConnReject   Kind = 3
	KindError        Kind = 7
	KindListReq      Kind = 10
	KindListCount    Kind = 11
	KindListUser     Kind = 12
	KindListDone     Kind = 13
	KindGameStartReq Kind = 20
	KindGameStarted  Kind = 21
	KindGameStartErr Kind = 22
	KindMove         Kind = 30
	KindBoardUpdate  Kind = 31
	KindMoveInvalid  Kind = 32
	KindGameOver     Kind = 33
)

var kindNames = map[Kind]string{
	KindInitialConn:  "INITIAL_CONN",
	KindConnAccept:   "CONN_ACCEPT",
	KindConnReject:   "CONN_REJECT",
	KindError:        "ERROR",
	KindListReq:      "LIST_REQ",
	KindListCount:    "LIST_COUNT",
	KindListUser:     "LIST_USER",
	KindListDone:     "LIST_DONE",
	KindGameStartReq: "GAME_START_REQ",
	KindGameStarted:  "GAME_STARTED",
	KindGameStartErr: "GAME_START_ERR",
	KindMove:         "MOVE",
	KindBoardUpdate:  "BOARD_UPDATE",
	KindMoveInvalid:  "MOVE_INVALID",
	KindGameOver:     "GAME_OVER",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND(%d)", byte(k))
}

// FromClient reports whether clients are allowed to send the kind.
func (k Kind) FromClient() bool {
	switch k {
	case KindInitialConn, KindListReq, KindGameStartReq, KindMove:
		return true
	}
	return false
}

// StartError is the reason carried by GAME_START_ERR.
type StartError byte

// Start errors
const (
	StartNoSuchPlayer StartError = iota
	StartOpponentBusy
	StartSelfBusy
	StartSelfChallenge
)

// MoveError is the reason carried by MOVE_INVALID.
type MoveError byte

// Move errors
const (
	MoveNotYourTurn MoveError = iota
	MoveOccupied
	MoveBadPosition
	MoveNotInGame
)

// Result is the outcome carried by GAME_OVER.
type Result byte

// Results
const (
	ResultDraw Result = iota
	ResultXWon
	ResultOWon
	ResultXForfeit
	ResultOForfeit
	ResultXDisconnected
	ResultODisconnected
)

var resultNames = [...]string{"draw", "x_won", "o_won", "x_forfeit", "o_forfeit", "x_disconnected", "o_disconnected"}

func (r Result) String() string {
	if int(r) < len(resultNames) {
		return resultNames[r]
	}
	return fmt.Sprintf("result(%d)", byte(r))
}

// Decoding errors.
var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownKind = errors.New("unknown message kind")
	ErrNameTooLong = errors.New("string longer than 255 bytes")
)

// Message is one decoded protocol message.
type Message interface {
	Kind() Kind
	encode(e *encoder) error
	decode(d *decoder) error
}

// InitialConn registers a handle.
type InitialConn struct{ Name string }

// ConnAccept confirms registration.
type ConnAccept struct{}

// ConnReject refuses the handle.
type ConnReject struct{ Name string }

// Error carries free text; it runs to the end of the payload.
type Error struct{ Text string }

// ListReq asks for the online users.
type ListReq struct{}

// ListCount opens a list sequence.
type ListCount struct{ Count uint32 }

// ListUser is one list entry.
type ListUser struct{ Name string }

// ListDone closes a list sequence.
type ListDone struct{}

// GameStartReq challenges an opponent by name.
type GameStartReq struct{ Opponent string }

// GameStarted tells one side the game began; Opponent is the other player.
type GameStarted struct {
	Opponent string
	Symbol   game.Symbol
	GameID   byte
}

// GameStartErr refuses a challenge.
type GameStartErr struct {
	Code     StartError
	Opponent string
}

// Move places a mark at Position (1-9).
type Move struct {
	GameID   byte
	Position byte
}

// BoardUpdate reports an accepted move.
type BoardUpdate struct {
	GameID   byte
	Position byte
	WhoMoved game.Symbol
	Board    game.Board
	NextTurn game.Symbol
}

// MoveInvalid refuses a move.
type MoveInvalid struct{ Code MoveError }

// GameOver ends a game.
type GameOver struct {
	GameID byte
	Result Result
	Board  game.Board
}

func (InitialConn) Kind() Kind  { return KindInitialConn }
func (ConnAccept) Kind() Kind   { return KindConnAccept }
func (ConnReject) Kind() Kind   { return KindConnReject }
func (Error) Kind() Kind        { return KindError }
func (ListReq) Kind() Kind      { return KindListReq }
func (ListCount) Kind() Kind    { return KindListCount }
func (ListUser) Kind() Kind     { return KindListUser }
func (ListDone) Kind() Kind     { return KindListDone }
func (GameStartReq) Kind() Kind { return KindGameStartReq }
func (GameStarted) Kind() Kind  { return KindGameStarted }
func (GameStartErr) Kind() Kind { return KindGameStartErr }
func (Move) Kind() Kind         { return KindMove }
func (BoardUpdate) Kind() Kind  { return KindBoardUpdate }
func (MoveInvalid) Kind() Kind  { return KindMoveInvalid }
func (GameOver) Kind() Kind     { return KindGameOver }

func newMessage(k Kind) (Message, error) {
	switch k {
	case KindInitialConn:
		return &InitialConn{}, nil
	case KindConnAccept:
		return &ConnAccept{}, nil
	case KindConnReject:
		return &ConnReject{}, nil
	case KindError:
		return &Error{}, nil
	case KindListReq:
		return &ListReq{}, nil
	case KindListCount:
		return &ListCount{}, nil
	case KindListUser:
		return &ListUser{}, nil
	case KindListDone:
		return &ListDone{}, nil
	case KindGameStartReq:
		return &GameStartReq{}, nil
	case KindGameStarted:
		return &GameStarted{}, nil
	case KindGameStartErr:
		return &GameStartErr{}, nil
	case KindMove:
		return &Move{}, nil
	case KindBoardUpdate:
		return &BoardUpdate{}, nil
	case KindMoveInvalid:
		return &MoveInvalid{}, nil
	case KindGameOver:
		return &GameOver{}, nil
	}
	return nil, errors.Wrapf(ErrUnknownKind, "%d", byte(k))
}

// Encode serialises m, kind byte first.
func Encode(m Message) ([]byte, error) {
	e := &encoder{buf: []byte{byte(m.Kind())}}
	if err := m.encode(e); err != nil {
		return nil, errors.Wrap(err, m.Kind().String())
	}
	return e.buf, nil
}

// Decode parses one payload. Trailing bytes after a complete message are ignored.
// The returned Message is a pointer to one of the message structs.
func Decode(payload []byte) (Message, error) {
	if len(payload) == 0 {
		return nil, errors.Wrap(ErrMalformed, "empty payload")
	}

	m, err := newMessage(Kind(payload[0]))
	if err != nil {
		return nil, err
	}

	if err := m.decode(&decoder{buf: payload, pos: 1}); err != nil {
		return nil, errors.Wrap(err, m.Kind().String())
	}
	return m, nil
}

type encoder struct {
	buf []byte
}

func (e *encoder) putByte(b byte) {
	e.buf = append(e.buf, b)
}

func (e *encoder) putString(s string) error {
	if len(s) > 255 {
		return ErrNameTooLong
	}
	e.buf = append(e.buf, byte(len(s)))
	e.buf = append(e.buf, s...)
	return nil
}

func (e *encoder) putBoard(b game.Board) {
	for _, c := range b {
		e.buf = append(e.buf, byte(c))
	}
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, ErrMalformed
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readBytes(n int) ([]byte, error) {
	if d.pos+n > len(d.buf) {
		return nil, ErrMalformed
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) readString() (string, error) {
	n, err := d.readByte()
	if err != nil {
		return "", err
	}
	b, err := d.readBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *decoder) readBoard() (game.Board, error) {
	var board game.Board
	b, err := d.readBytes(len(board))
	if err != nil {
		return board, err
	}
	for i, c := range b {
		board[i] = game.Cell(c)
	}
	return board, nil
}

func (d *decoder) rest() []byte {
	b := d.buf[d.pos:]
	d.pos = len(d.buf)
	return b
}

func (m *InitialConn) encode(e *encoder) error { return e.putString(m.Name) }
func (m *InitialConn) decode(d *decoder) (err error) {
	m.Name, err = d.readString()
	return err
}

func (m *ConnAccept) encode(*encoder) error { return nil }
func (m *ConnAccept) decode(*decoder) error { return nil }

func (m *ConnReject) encode(e *encoder) error { return e.putString(m.Name) }
func (m *ConnReject) decode(d *decoder) (err error) {
	m.Name, err = d.readString()
	return err
}

func (m *Error) encode(e *encoder) error {
	e.buf = append(e.buf, m.Text...)
	return nil
}
func (m *Error) decode(d *decoder) error {
	m.Text = string(d.rest())
	return nil
}

func (m *ListReq) encode(*encoder) error { return nil }
func (m *ListReq) decode(*decoder) error { return nil }

func (m *ListCount) encode(e *encoder) error {
	e.buf = binary.BigEndian.AppendUint32(e.buf, m.Count)
	return nil
}
func (m *ListCount) decode(d *decoder) error {
	b, err := d.readBytes(4)
	if err != nil {
		return err
	}
	m.Count = binary.BigEndian.Uint32(b)
	return nil
}

func (m *ListUser) encode(e *encoder) error { return e.putString(m.Name) }
func (m *ListUser) decode(d *decoder) (err error) {
	m.Name, err = d.readString()
	return err
}

func (m *ListDone) encode(*encoder) error { return nil }
func (m *ListDone) decode(*decoder) error { return nil }

func (m *GameStartReq) encode(e *encoder) error { return e.putString(m.Opponent) }
func (m *GameStartReq) decode(d *decoder) (err error) {
	m.Opponent, err = d.readString()
	return err
}

func (m *GameStarted) encode(e *encoder) error {
	if err := e.putString(m.Opponent); err != nil {
		return err
	}
	e.putByte(byte(m.Symbol))
	e.putByte(m.GameID)
	return nil
}
func (m *GameStarted) decode(d *decoder) (err error) {
	if m.Opponent, err = d.readString(); err != nil {
		return err
	}
	b, err := d.readBytes(2)
	if err != nil {
		return err
	}
	m.Symbol, m.GameID = game.Symbol(b[0]), b[1]
	return nil
}

func (m *GameStartErr) encode(e *encoder) error {
	e.putByte(byte(m.Code))
	return e.putString(m.Opponent)
}
func (m *GameStartErr) decode(d *decoder) (err error) {
	code, err := d.readByte()
	if err != nil {
		return err
	}
	m.Code = StartError(code)
	m.Opponent, err = d.readString()
	return err
}

func (m *Move) encode(e *encoder) error {
	e.putByte(m.GameID)
	e.putByte(m.Position)
	return nil
}
func (m *Move) decode(d *decoder) error {
	b, err := d.readBytes(2)
	if err != nil {
		return err
	}
	m.GameID, m.Position = b[0], b[1]
	return nil
}

func (m *BoardUpdate) encode(e *encoder) error {
	e.putByte(m.GameID)
	e.putByte(m.Position)
	e.putByte(byte(m.WhoMoved))
	e.putBoard(m.Board)
	e.putByte(byte(m.NextTurn))
	return nil
}
func (m *BoardUpdate) decode(d *decoder) error {
	b, err := d.readBytes(3)
	if err != nil {
		return err
	}
	m.GameID, m.Position, m.WhoMoved = b[0], b[1], game.Symbol(b[2])
	if m.Board, err = d.readBoard(); err != nil {
		return err
	}
	next, err := d.readByte()
	if err != nil {
		return err
	}
	m.NextTurn = game.Symbol(next)
	return nil
}

func (m *MoveInvalid) encode(e *encoder) error {
	e.putByte(byte(m.Code))
	return nil
}
func (m *MoveInvalid) decode(d *decoder) error {
	code, err := d.readByte()
	m.Code = MoveError(code)
	return err
}

func (m *GameOver) encode(e *encoder) error {
	e.putByte(m.GameID)
	e.putByte(byte(m.Result))
	e.putBoard(m.Board)
	return nil
}
func (m *GameOver) decode(d *decoder) error {
	b, err := d.readBytes(2)
	if err != nil {
		return err
	}
	m.GameID, m.Result = b[0], Result(b[1])
	m.Board, err = d.readBoard()
	return err
}
