package signal

import (
	"context"
	"time"

	"github.com/dkeye/CollabRelay/internal/core"
	"github.com/dkeye/CollabRelay/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, sid core.SessionID, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		ctl.conns.Done()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("writePump set deadline")
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("writePump drained")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if !ctl.heartbeat(sid, c) {
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.OnDisconnect(sid)
		ctl.limiter.Forget(sid)
		c.Close()
		cancel()
		ctl.conns.Done()
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	c.conn.SetPongHandler(func(string) error {
		ctl.handlePong(sid, c)
		return nil
	})

	for {
		if ctx.Err() != nil {
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		ctl.handleSignal(sid, c, data)
	}
}

func (ctl *SignalWSController) handleSignal(sid core.SessionID, c *WsSignalConn, data []byte) {
	typ, err := protocol.DecodeType(data)
	if err != nil {
		ctl.replyError(sid, c, err)
		return
	}
	if throttled(typ) && !ctl.limiter.Allow(sid) {
		return
	}

	switch typ {
	case protocol.TypeJoin:
		ctl.handleJoin(sid, c, data)
	case protocol.TypeLeave:
		ctl.handleLeave(sid)
	case protocol.TypeFileOperation:
		ctl.handleFileOperation(sid, c, data)
	case protocol.TypeCursorPosition:
		ctl.Orch.RelayCursor(sid, data)
	case protocol.TypeFileCreated:
		ctl.handleFileCreated(sid, c, data)
	case protocol.TypeFileDeleted:
		ctl.handleFileDeleted(sid, c, data)
	case protocol.TypePing:
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("type", typ).Msg("unknown signal")
	}
}

// throttled reports whether frames of typ go through the rate limiter.
// Frames that change room state are never dropped.
func throttled(typ string) bool {
	switch typ {
	case protocol.TypeJoin, protocol.TypeLeave, protocol.TypeFileOperation,
		protocol.TypeFileCreated, protocol.TypeFileDeleted:
		return false
	}
	return true
}

func (ctl *SignalWSController) replyError(sid core.SessionID, c *WsSignalConn, err error) {
	log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad payload")
	ctl.Orch.Send(c, protocol.NewError("Invalid message format"))
}
