package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dkeye/CollabRelay/internal/core"
	"github.com/dkeye/CollabRelay/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Signal core.SignalConnection
	Cancel context.CancelFunc
	RoomID domain.RoomID
	UserID domain.UserID
}

// Registry tracks every open connection and the room/user it last joined.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	nextID   atomic.Uint64
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
	}
}

// NextSID hands out connection ids from a monotonic counter.
func (r *Registry) NextSID() core.SessionID {
	return core.SessionID(fmt.Sprintf("conn-%d", r.nextID.Add(1)))
}

func (r *Registry) BindSignal(sid core.SessionID, sig core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Signal: sig, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound signal")
}

func (r *Registry) Signal(sid core.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Signal, true
	}
	return nil, false
}

func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
}

// RoomOf returns the room and user the session currently speaks for.
func (r *Registry) RoomOf(sid core.SessionID) (domain.RoomID, domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[sid]
	if !ok || entry.RoomID == "" {
		return "", "", false
	}
	return entry.RoomID, entry.UserID, true
}

func (r *Registry) UpdateRoom(sid core.SessionID, room domain.RoomID, user domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return false
	}
	entry.RoomID = room
	entry.UserID = user
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Str("user", string(user)).Msg("updated room")
	return true
}

func (r *Registry) RemoveRoom(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.sessions[sid]; ok {
		entry.RoomID = ""
		entry.UserID = ""
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("removed room association")
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

type regSnap struct {
	SID    core.SessionID
	Signal core.SignalConnection
}

func (r *Registry) All() []regSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]regSnap, 0, len(r.sessions))
	for sid, e := range r.sessions {
		out = append(out, regSnap{SID: sid, Signal: e.Signal})
	}
	return out
}

// Cancel stops the connection's pumps without waiting for queued frames.
func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
