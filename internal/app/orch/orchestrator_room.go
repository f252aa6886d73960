package orch

import (
	"time"

	"github.com/dkeye/CollabRelay/internal/app"
	"github.com/dkeye/CollabRelay/internal/core"
	"github.com/dkeye/CollabRelay/internal/domain"
	"github.com/dkeye/CollabRelay/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Join registers the session's user in roomID. The joiner gets users-list and
// file-list; everybody else gets user-joined.
//
// A session that already sits in another room is not removed from it: its
// current room/user are simply reassigned and the old membership lingers
// until a failed send or the idle sweep clears it.
func (o *Orchestrator) Join(sid core.SessionID, roomID domain.RoomID, user domain.User) bool {
	sig, ok := o.Registry.Signal(sid)
	if !ok {
		return false
	}
	u := user
	meta := domain.NewMember(&u, o.now())
	ms := core.NewMemberSession(sid, meta, sig)

	room, created := o.Rooms.Join(roomID, ms, func(users []domain.User, files []domain.File) {
		o.Send(sig, protocol.NewUsersList(users))
		o.Send(sig, protocol.NewFileList(files))
	})
	o.Registry.UpdateRoom(sid, roomID, u.ID)

	if created {
		o.journal().RoomOpened(roomID)
	}
	o.journal().MemberJoined(roomID, u.ID, room.MemberCount())
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Str("user", string(u.ID)).Msg("joined room")

	o.broadcast(room, sid, protocol.NewUserJoined(u))
	return true
}

// Leave removes the session from its current room. Leaving when not a member
// is harmless.
func (o *Orchestrator) Leave(sid core.SessionID) bool {
	roomID, uid, ok := o.Registry.RoomOf(sid)
	if !ok {
		return false
	}
	o.Registry.RemoveRoom(sid)
	return o.evict(sid, roomID, uid)
}

// OnDisconnect is the single cleanup path for a closed or terminated
// connection.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	roomID, uid, ok := o.Registry.RoomOf(sid)
	o.Registry.Unbind(sid)
	if !ok {
		return
	}
	o.evict(sid, roomID, uid)
}

func (o *Orchestrator) evict(sid core.SessionID, roomID domain.RoomID, uid domain.UserID) bool {
	room, ok := o.Rooms.GetRoom(roomID)
	if !ok {
		return false
	}
	removed := room.RemoveMember(uid, sid)
	if removed {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Str("user", string(uid)).Msg("left room")
		o.broadcast(room, sid, protocol.NewUserLeft(uid))
	}
	o.closeIfEmpty(roomID)
	return removed
}

// Touch refreshes the member's liveness after a heartbeat pong.
func (o *Orchestrator) Touch(sid core.SessionID) {
	room, uid, ok := o.currentRoom(sid)
	if !ok {
		return
	}
	room.Touch(uid, sid, o.now())
}

// SweepIdle silently evicts members not seen since cutoff, then removes
// every room left without members.
func (o *Orchestrator) SweepIdle(cutoff time.Time) app.SweepResult {
	var res app.SweepResult
	for _, room := range o.Rooms.Rooms() {
		res.Evicted += len(room.EvictIdle(cutoff))
		id := room.Room().ID
		if o.Rooms.RemoveIfEmpty(id) {
			o.journal().RoomClosed(id)
			res.RoomsRemoved++
		}
	}
	return res
}

// Draining reports whether Shutdown has started.
func (o *Orchestrator) Draining() bool {
	return o.draining.Load()
}

// Shutdown tells every connection the server is going away and closes it
// once its queue drains.
func (o *Orchestrator) Shutdown() {
	o.draining.Store(true)
	b, err := protocol.Encode(protocol.NewServerShutdown())
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode shutdown")
		return
	}
	sessions := o.Registry.All()
	for _, snap := range sessions {
		if err := snap.Signal.TrySend(b); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("sid", string(snap.SID)).Msg("shutdown notice not queued")
		}
		snap.Signal.Close()
	}
	log.Info().Str("module", "orch").Int("connections", len(sessions)).Msg("shutdown notices sent")
}
