package core

import "errors"

// Frame is a raw payload, one websocket message.
type Frame []byte

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues f without blocking. An error means the peer cannot
	// keep up or is gone.
	TrySend(Frame) error
	Close()
}
