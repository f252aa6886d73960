// Package protocol defines the JSON envelopes exchanged over the relay socket.
// Every frame is a single object with a "type" discriminator.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/CollabRelay/internal/domain"
	"github.com/dkeye/CollabRelay/internal/textbuf"
)

// Inbound types.
const (
	TypeJoin           = "join"
	TypeLeave          = "leave"
	TypeFileOperation  = "file-operation"
	TypeCursorPosition = "cursor-position"
	TypeFileCreated    = "file-created"
	TypeFileDeleted    = "file-deleted"
	TypePing           = "ping"
)

// Outbound types.
const (
	TypeWelcome        = "welcome"
	TypeUsersList      = "users-list"
	TypeFileList       = "file-list"
	TypeUserJoined     = "user-joined"
	TypeUserLeft       = "user-left"
	TypeError          = "error"
	TypeServerShutdown = "server-shutdown"
	TypePong           = "pong"
)

var ErrMalformed = errors.New("malformed envelope")

type Envelope struct {
	Type string `json:"type"`
}

// DecodeType extracts the discriminator. A frame that is not a JSON object or
// has no type is malformed.
func DecodeType(data []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return env.Type, nil
}

type JoinPayload struct {
	RoomID domain.RoomID `json:"roomId"`
	User   domain.User   `json:"user"`
}

func DecodeJoin(data []byte) (JoinPayload, error) {
	var p JoinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p.RoomID == "" {
		return p, fmt.Errorf("%w: missing roomId", ErrMalformed)
	}
	if err := p.User.Validate(); err != nil {
		return p, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return p, nil
}

type FileOperationPayload struct {
	FileName  string     `json:"fileName"`
	Operation textbuf.Op `json:"operation"`
}

func DecodeFileOperation(data []byte) (FileOperationPayload, error) {
	var p FileOperationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p.FileName == "" {
		return p, fmt.Errorf("%w: missing fileName", ErrMalformed)
	}
	return p, nil
}

type FileCreatedPayload struct {
	FileName string `json:"fileName"`
	Content  string `json:"content"`
}

func DecodeFileCreated(data []byte) (FileCreatedPayload, error) {
	var p FileCreatedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p.FileName == "" {
		return p, fmt.Errorf("%w: missing fileName", ErrMalformed)
	}
	return p, nil
}

type FileDeletedPayload struct {
	FileName string `json:"fileName"`
}

func DecodeFileDeleted(data []byte) (FileDeletedPayload, error) {
	var p FileDeletedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p.FileName == "" {
		return p, fmt.Errorf("%w: missing fileName", ErrMalformed)
	}
	return p, nil
}
