package id

import "github.com/google/uuid"

// Session identifies one connection for as long as it is open. It is handed to
// the registry and the game engine instead of the underlying connection so that
// neither depends on the transport.
type Session uuid.UUID

// Nil is the zero Session.
var Nil = Session(uuid.Nil)

// NewSession returns a fresh random session id.
func NewSession() Session {
	return Session(uuid.New())
}

// String returns the canonical uuid form of the session id.
func (s Session) String() string {
	return uuid.UUID(s).String()
}
