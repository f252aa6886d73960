package app

import "github.com/dkeye/CollabRelay/internal/domain"

// Journal receives room lifecycle events. Implementations must not block.
type Journal interface {
	RoomOpened(id domain.RoomID)
	MemberJoined(id domain.RoomID, user domain.UserID, members int)
	RoomClosed(id domain.RoomID)
}

type NopJournal struct{}

func (NopJournal) RoomOpened(domain.RoomID) {}
func (NopJournal) MemberJoined(domain.RoomID, domain.UserID, int) {}
func (NopJournal) RoomClosed(domain.RoomID) {}
