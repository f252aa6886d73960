package signal

import (
	"time"

	"github.com/dkeye/CollabRelay/internal/core"
	"github.com/dkeye/CollabRelay/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.Orch.Send(conn, protocol.NewPong())
}

// heartbeat runs on every ping tick. A connection that has not answered the
// previous ping is terminated without a close handshake.
func (ctl *SignalWSController) heartbeat(sid core.SessionID, c *WsSignalConn) bool {
	if !c.alive.Swap(false) {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("heartbeat missed, terminating")
		return false
	}
	if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("ping failed")
		return false
	}
	return true
}

func (ctl *SignalWSController) handlePong(sid core.SessionID, c *WsSignalConn) {
	c.alive.Store(true)
	ctl.Orch.Touch(sid)
}
