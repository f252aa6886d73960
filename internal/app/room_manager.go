package app

import (
	"sync"

	"github.com/dkeye/CollabRelay/internal/core"
	"github.com/dkeye/CollabRelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomManagerImpl is the room registry. Lock order is manager, then room.
type RoomManagerImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService
	seed  func() []domain.File
}

func NewRoomManager() *RoomManagerImpl {
	return &RoomManagerImpl{
		rooms: make(map[domain.RoomID]core.RoomService),
		seed:  domain.DefaultFiles,
	}
}

func (f *RoomManagerImpl) GetOrCreate(id domain.RoomID) core.RoomService {
	f.mu.RLock()
	room, ok := f.rooms[id]
	f.mu.RUnlock()
	if ok {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	room, _ = f.getOrCreateLocked(id)
	return room
}

func (f *RoomManagerImpl) GetRoom(id domain.RoomID) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[id]
	return room, ok
}

func (f *RoomManagerImpl) Join(id domain.RoomID, ms core.MemberSession, greet core.GreetFunc) (core.RoomService, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, created := f.getOrCreateLocked(id)
	room.AddMember(ms, greet)
	return room, created
}

func (f *RoomManagerImpl) RemoveIfEmpty(id domain.RoomID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok || room.MemberCount() > 0 {
		return false
	}
	delete(f.rooms, id)
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room removed (empty)")
	return true
}

func (f *RoomManagerImpl) StopRoom(id domain.RoomID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, id)
}

func (f *RoomManagerImpl) List() []core.RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(f.rooms))
	for id, r := range f.rooms {
		out = append(out, core.RoomInfo{ID: id, Users: r.MemberCount(), Files: r.FileCount()})
	}
	return out
}

func (f *RoomManagerImpl) Rooms() []core.RoomService {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.RoomService, 0, len(f.rooms))
	for _, r := range f.rooms {
		out = append(out, r)
	}
	return out
}

func (f *RoomManagerImpl) getOrCreateLocked(id domain.RoomID) (core.RoomService, bool) {
	if room, ok := f.rooms[id]; ok {
		return room, false
	}
	room := core.NewRoomService(&domain.Room{ID: id}, f.seed())
	f.rooms[id] = room
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room created")
	return room, true
}
