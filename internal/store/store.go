package store

import (
	"context"
	"time"
)

// Message is a persisted chat message. Records are append-only: nothing in
// the chat core updates or deletes them. Room is the plain room name; an
// unknown name is a valid room with no history, so no room row has to exist
// before the first message lands.
type Message struct {
	ID        int64
	Room      string
	Author    string
	Body      string
	CreatedAt time.Time
}

// MessageStore is the durable per-room append log behind history replay.
//
// Ordering is by storage order, not by the caller-supplied timestamp, so
// Recent stays monotonic even under clock skew.
type MessageStore interface {
	// Append records a message and returns its id. The message is visible
	// to Recent as soon as Append returns.
	Append(ctx context.Context, room, author, body string, at time.Time) (int64, error)

	// Recent returns up to limit of the newest messages in the room,
	// oldest first. An unknown room yields an empty result, not an error.
	Recent(ctx context.Context, room string, limit int) ([]*Message, error)
}
