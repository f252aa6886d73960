package signal

import (
	"github.com/dkeye/CollabRelay/internal/core"
	"github.com/dkeye/CollabRelay/internal/protocol"
)

func (ctl *SignalWSController) handleFileOperation(sid core.SessionID, conn *WsSignalConn, data []byte) {
	p, err := protocol.DecodeFileOperation(data)
	if err != nil {
		ctl.replyError(sid, conn, err)
		return
	}
	ctl.Orch.ApplyOperation(sid, p.FileName, p.Operation, data)
}

func (ctl *SignalWSController) handleFileCreated(sid core.SessionID, conn *WsSignalConn, data []byte) {
	p, err := protocol.DecodeFileCreated(data)
	if err != nil {
		ctl.replyError(sid, conn, err)
		return
	}
	ctl.Orch.CreateFile(sid, p.FileName, p.Content, data)
}

func (ctl *SignalWSController) handleFileDeleted(sid core.SessionID, conn *WsSignalConn, data []byte) {
	p, err := protocol.DecodeFileDeleted(data)
	if err != nil {
		ctl.replyError(sid, conn, err)
		return
	}
	ctl.Orch.DeleteFile(sid, p.FileName, data)
}
