package domain

import "time"

// Member represents user's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	User     *User
	LastSeen time.Time
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User, now time.Time) *Member {
	return &Member{User: user, LastSeen: now}
}

// IdleSince reports whether the member has not been seen since cutoff.
func (m *Member) IdleSince(cutoff time.Time) bool {
	return m.LastSeen.Before(cutoff)
}
