package signal

import (
	"github.com/dkeye/CollabRelay/internal/core"
	"github.com/dkeye/CollabRelay/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(sid core.SessionID, conn *WsSignalConn, data []byte) {
	p, err := protocol.DecodeJoin(data)
	if err != nil {
		ctl.replyError(sid, conn, err)
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(p.RoomID)).Str("user", string(p.User.ID)).Msg("join")
	ctl.Orch.Join(sid, p.RoomID, p.User)
}

// handleLeave exits the current room; the connection stays open.
func (ctl *SignalWSController) handleLeave(sid core.SessionID) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	ctl.Orch.Leave(sid)
}
