package orch

import (
	"github.com/dkeye/CollabRelay/internal/core"
	"github.com/dkeye/CollabRelay/internal/textbuf"
	"github.com/rs/zerolog/log"
)

// ApplyOperation mutates the shared copy of name and relays the raw frame to
// the rest of the room. Missing rooms and files make it a no-op.
func (o *Orchestrator) ApplyOperation(sid core.SessionID, name string, op textbuf.Op, data core.Frame) bool {
	room, _, ok := o.currentRoom(sid)
	if !ok {
		return false
	}
	res, applied := room.ApplyOperation(sid, name, op, data)
	if !applied {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("file", name).Msg("operation on missing file ignored")
		return false
	}
	o.handleDropped(room, res)
	return true
}

// RelayCursor forwards a cursor frame verbatim to the rest of the room.
func (o *Orchestrator) RelayCursor(sid core.SessionID, data core.Frame) bool {
	room, _, ok := o.currentRoom(sid)
	if !ok {
		return false
	}
	o.publish(room, sid, data)
	return true
}

// CreateFile inserts or overwrites a file and relays to every member,
// the sender included.
func (o *Orchestrator) CreateFile(sid core.SessionID, name, content string, data core.Frame) bool {
	room, _, ok := o.currentRoom(sid)
	if !ok {
		return false
	}
	o.handleDropped(room, room.PutFile(name, content, data))
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room.Room().ID)).Str("file", name).Msg("file created")
	return true
}

func (o *Orchestrator) DeleteFile(sid core.SessionID, name string, data core.Frame) bool {
	room, _, ok := o.currentRoom(sid)
	if !ok {
		return false
	}
	res, existed := room.DeleteFile(name, data)
	o.handleDropped(room, res)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room.Room().ID)).Str("file", name).Bool("existed", existed).Msg("file deleted")
	return true
}
