package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/studyhall/roomchat/internal/store"
)

// DefaultHistoryLimit bounds how many persisted messages a joining
// connection gets replayed.
const DefaultHistoryLimit = 20

// Session drives one connection through its lifecycle: join the room, replay
// recent history, persist and broadcast inbound messages, leave on the way
// out. The transport owns the wire; the session mediates between the wire
// and the registry and store.
type Session struct {
	registry *Registry
	messages store.MessageStore
	handle   *Handle
	limit    int
	log      *zerolog.Logger
}

// NewSession binds a handle to the registry and message store.
func NewSession(registry *Registry, messages store.MessageStore, handle *Handle, historyLimit int, logger *zerolog.Logger) *Session {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Session{
		registry: registry,
		messages: messages,
		handle:   handle,
		limit:    historyLimit,
		log:      logger,
	}
}

// Handle returns the connection handle this session owns.
func (s *Session) Handle() *Handle {
	return s.handle
}

// Join registers the handle with its room. Must complete before History is
// fetched so that anything broadcast during the replay window queues on the
// handle and drains after history.
func (s *Session) Join() {
	s.registry.Join(s.handle.Room, s.handle)
}

// Leave unregisters the handle and shuts it down. Safe on every exit path,
// including one where Join never ran or the registry already dropped us.
func (s *Session) Leave() {
	s.registry.Leave(s.handle.Room, s.handle)
	s.handle.Close()
}

// History returns the most recent persisted messages for the session's
// room, oldest first, ready to be written to the wire before live events
// are drained.
func (s *Session) History(ctx context.Context) ([]*Event, error) {
	msgs, err := s.messages.Recent(ctx, s.handle.Room, s.limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	events := make([]*Event, 0, len(msgs))
	for _, m := range msgs {
		events = append(events, &Event{
			Kind:      EventMessage,
			Message:   m.Body,
			Username:  m.Author,
			Timestamp: m.CreatedAt,
		})
	}
	return events, nil
}

// Send persists body (authenticated senders only) and broadcasts it to the
// whole room, the sender included. A failed append downgrades to a notice
// for the sender; the live broadcast still goes out.
func (s *Session) Send(ctx context.Context, body string) {
	now := time.Now().UTC()

	if s.handle.Authenticated {
		if _, err := s.messages.Append(ctx, s.handle.Room, s.handle.Name, body, now); err != nil {
			s.log.Warn().Err(err).Str("room", s.handle.Room).Str("conn_id", s.handle.ID).Msg("message not persisted")
			s.handle.trySend(&Event{Kind: EventNotice, Notice: "message could not be saved"})
		}
	}

	s.registry.Broadcast(s.handle.Room, &Event{
		Kind:      EventMessage,
		Message:   body,
		Username:  s.handle.Name,
		Timestamp: now,
	})
}
