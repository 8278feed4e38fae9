package hub

// Handler implements the processing performed by the hub.
// Every method is called from the hub goroutine, one call at a time.
type Handler interface {
	// OnConnect is called when a connection is accepted. Returning an error
	// refuses it: anything already sent to the session is flushed, then the
	// connection is closed and OnDisconnect is never called.
	OnConnect(s *Session) error

	// Receive processes one payload sent from the session.
	Receive(s *Session, payload []byte)

	// OnDisconnect is called once when an accepted session goes away.
	OnDisconnect(s *Session)
}
