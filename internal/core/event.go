package core

import "time"

// EventKind says what a delivered event means to the receiving connection.
type EventKind int

const (
	// EventMessage carries a chat message, live or replayed.
	EventMessage EventKind = iota
	// EventNotice carries an advisory addressed to a single connection,
	// such as a message that could not be persisted.
	EventNotice
)

// Event is the unit the registry fans out to room members. Timestamps are
// kept as time.Time here; formatting belongs to the transport.
type Event struct {
	Kind      EventKind
	Message   string
	Username  string
	Timestamp time.Time
	Notice    string
}
