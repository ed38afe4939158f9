package core

import "sync"

// DefaultSendBuffer is the per-connection outbound queue depth used when the
// configuration does not say otherwise.
const DefaultSendBuffer = 32

// Handle represents one live connection as the registry sees it: the room it
// belongs to, the resolved display name, and the buffered path back to the
// transport's write loop. A handle lives only in process memory and is owned
// by the session that created it; the registry holds a membership reference.
type Handle struct {
	ID            string
	Room          string
	Name          string
	Authenticated bool

	events chan *Event
	done   chan struct{}
	once   sync.Once
}

// NewHandle constructs a handle with a bounded outbound queue.
func NewHandle(id, room, name string, authenticated bool, buffer int) *Handle {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	return &Handle{
		ID:            id,
		Room:          room,
		Name:          name,
		Authenticated: authenticated,
		events:        make(chan *Event, buffer),
		done:          make(chan struct{}),
	}
}

// Events is drained by the connection's own write loop.
func (h *Handle) Events() <-chan *Event {
	return h.events
}

// Done is closed once the handle is shut down, either by its session or by
// the registry dropping it as unresponsive.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Close shuts the handle down. Safe to call more than once.
func (h *Handle) Close() {
	h.once.Do(func() {
		close(h.done)
	})
}

// trySend enqueues without ever blocking the caller. A false return means
// the handle is closed or its buffer is saturated.
func (h *Handle) trySend(ev *Event) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.events <- ev:
		return true
	case <-h.done:
		return false
	default:
		return false
	}
}
