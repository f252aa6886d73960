package orch

import (
	"sync/atomic"
	"time"

	"github.com/dkeye/CollabRelay/internal/app"
	"github.com/dkeye/CollabRelay/internal/core"
	"github.com/dkeye/CollabRelay/internal/domain"
	"github.com/dkeye/CollabRelay/internal/protocol"
	"github.com/rs/zerolog/log"
)

type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Policy   app.Policy
	Journal  app.Journal
	// Now is the clock used for member liveness. Defaults to time.Now.
	Now func() time.Time

	draining atomic.Bool
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) journal() app.Journal {
	if o.Journal != nil {
		return o.Journal
	}
	return app.NopJournal{}
}

// Send encodes v and queues it on a single connection.
func (o *Orchestrator) Send(sig core.SignalConnection, v any) {
	b, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode envelope")
		return
	}
	if err := sig.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "orch").Msg("direct send failed")
	}
}

func (o *Orchestrator) broadcast(room core.RoomService, from core.SessionID, v any) {
	b, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode envelope")
		return
	}
	o.publish(room, from, b)
}

func (o *Orchestrator) publish(room core.RoomService, from core.SessionID, data core.Frame) {
	o.handleDropped(room, room.Broadcast(from, data))
}

// handleDropped finishes off members the room evicted during a fan-out:
// their connection is cut per policy and the rest of the room is told.
func (o *Orchestrator) handleDropped(room core.RoomService, res core.PublishResult) {
	if len(res.Dropped) == 0 {
		return
	}
	for _, slow := range res.Dropped {
		// Once draining, every connection is already closing gracefully.
		if o.Policy != nil && !o.draining.Load() {
			switch o.Policy.OnBackPressure(room, slow) {
			case app.KickMember:
				if !o.Registry.Cancel(slow.SID()) {
					slow.Signal().Close()
				}
			case app.DetachMember:
				o.detach(room.Room().ID, slow)
			}
		}
		uid := slow.Meta().User.ID
		log.Info().Str("module", "orch").Str("room", string(room.Room().ID)).Str("sid", string(slow.SID())).Str("user", string(uid)).Msg("unreachable member dropped")
		o.broadcast(room, core.AllMembers, protocol.NewUserLeft(uid))
	}
	o.closeIfEmpty(room.Room().ID)
}

// detach forgets the session's current room if it is the one that dropped
// it, so its next frames are not relayed into a room it is no longer in.
func (o *Orchestrator) detach(id domain.RoomID, ms core.MemberSession) {
	roomID, uid, ok := o.Registry.RoomOf(ms.SID())
	if ok && roomID == id && uid == ms.Meta().User.ID {
		o.Registry.RemoveRoom(ms.SID())
	}
}

func (o *Orchestrator) closeIfEmpty(id domain.RoomID) {
	if o.Rooms.RemoveIfEmpty(id) {
		o.journal().RoomClosed(id)
	}
}

// currentRoom resolves the room a session last joined, if it still exists.
func (o *Orchestrator) currentRoom(sid core.SessionID) (core.RoomService, domain.UserID, bool) {
	roomID, uid, ok := o.Registry.RoomOf(sid)
	if !ok {
		return nil, "", false
	}
	room, ok := o.Rooms.GetRoom(roomID)
	if !ok {
		return nil, "", false
	}
	return room, uid, true
}

// Stats returns live room and member counts.
func (o *Orchestrator) Stats() (rooms, users int) {
	for _, info := range o.Rooms.List() {
		rooms++
		users += info.Users
	}
	return rooms, users
}
