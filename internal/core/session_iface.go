package core

import "github.com/dkeye/CollabRelay/internal/domain"

type SessionID string

// AllMembers as a broadcast origin excludes nobody.
const AllMembers SessionID = ""

// MemberSession binds domain.Member and its transport endpoint.
// This is what a room stores and fans out to. The session does not own the
// connection; it is only a handle for sending.
type MemberSession interface {
	SID() SessionID
	Meta() *domain.Member
	Signal() SignalConnection
}
