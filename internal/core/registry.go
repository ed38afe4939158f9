package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// Registry maps room names to their live members and fans events out to
// them. Rooms come into existence on first reference and stay around as
// empty groups after the last member leaves; there is no delete path here.
//
// Broadcast is also the extension point other subsystems use to push an
// event to everyone currently viewing a room.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
	log   *zerolog.Logger
}

// room serializes membership changes and fanout for one broadcast group.
// Operations on different rooms share no lock beyond the registry map.
type room struct {
	mu      sync.Mutex
	members map[*Handle]struct{}
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *zerolog.Logger) *Registry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Registry{
		rooms: make(map[string]*room),
		log:   logger,
	}
}

func (reg *Registry) getRoom(name string) *room {
	reg.mu.RLock()
	r := reg.rooms[name]
	reg.mu.RUnlock()
	if r != nil {
		return r
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if r = reg.rooms[name]; r == nil {
		r = &room{members: make(map[*Handle]struct{})}
		reg.rooms[name] = r
	}
	return r
}

// Join adds the handle to the room's membership set. Joining a room the
// handle is already in is a no-op.
func (reg *Registry) Join(roomName string, h *Handle) {
	r := reg.getRoom(roomName)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[h]; ok {
		return
	}
	r.members[h] = struct{}{}
	reg.log.Debug().Str("room", roomName).Str("conn_id", h.ID).Int("members", len(r.members)).Msg("joined room")
}

// Leave removes the handle from the room. Leaving a room the handle is not
// in is a no-op; the error path and the normal close path may race here.
func (reg *Registry) Leave(roomName string, h *Handle) {
	reg.mu.RLock()
	r := reg.rooms[roomName]
	reg.mu.RUnlock()
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[h]; !ok {
		return
	}
	delete(r.members, h)
	reg.log.Debug().Str("room", roomName).Str("conn_id", h.ID).Int("members", len(r.members)).Msg("left room")
}

// Broadcast delivers ev to every member of the room as of this call. A
// member whose outbound buffer is saturated is closed and dropped from the
// room rather than stalling everyone else. Holding the room lock across the
// enqueues keeps sequential broadcasts ordered for every member.
func (reg *Registry) Broadcast(roomName string, ev *Event) {
	reg.mu.RLock()
	r := reg.rooms[roomName]
	reg.mu.RUnlock()
	if r == nil {
		// Unknown room is a valid empty group.
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for h := range r.members {
		if !h.trySend(ev) {
			delete(r.members, h)
			h.Close()
			reg.log.Warn().Str("room", roomName).Str("conn_id", h.ID).Msg("dropping unresponsive member")
		}
	}
}

// Members reports the current membership size of a room.
func (reg *Registry) Members(roomName string) int {
	reg.mu.RLock()
	r := reg.rooms[roomName]
	reg.mu.RUnlock()
	if r == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}
