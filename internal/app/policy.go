package app

import (
	"fmt"

	"github.com/dkeye/CollabRelay/internal/core"
)

type BackpressureAction int

const (
	// DetachMember keeps the connection open; it only lost its membership.
	DetachMember BackpressureAction = iota
	// KickMember cancels the connection.
	KickMember
)

// Policy decides what happens to a connection whose send failed during a
// broadcast. The room has already dropped its membership either way.
type Policy interface {
	OnBackPressure(room core.RoomService, member core.MemberSession) BackpressureAction
}

// KickPolicy treats a failed send as a dead peer.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(core.RoomService, core.MemberSession) BackpressureAction {
	return KickMember
}

// DetachPolicy lets a slow client stay connected and join again.
type DetachPolicy struct{}

func (DetachPolicy) OnBackPressure(core.RoomService, core.MemberSession) BackpressureAction {
	return DetachMember
}

// PolicyByName resolves the backpressure_policy config value.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "kick":
		return KickPolicy{}, nil
	case "detach":
		return DetachPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown backpressure policy %q", name)
}
