package core

import (
	"time"

	"github.com/dkeye/CollabRelay/internal/domain"
	"github.com/dkeye/CollabRelay/internal/textbuf"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
// Dropped members have already been evicted from the room.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID       domain.UserID `json:"id"`
	Name     string        `json:"name"`
	Color    string        `json:"color"`
	LastSeen time.Time     `json:"lastSeen"`
}

// RoomService is the core-facing API of a room.
// It owns the membership set and the file table but never touches transport
// resources beyond TrySend. Every mutation that produces a broadcast runs
// the fan-out under the same lock, so peers observe mutations in order.
type RoomService interface {
	Room() *domain.Room
	MemberCount() int
	FileCount() int
	MembersSnapshot() []MemberDTO
	FilesSnapshot() []domain.File
	FileNames() []string

	// AddMember binds ms under its user id, replacing any previous binding.
	// greet runs under the room lock with the post-join snapshot, so nothing
	// broadcast afterwards can overtake it.
	AddMember(ms MemberSession, greet GreetFunc)
	// RemoveMember removes uid only while it is still bound to sid.
	RemoveMember(uid domain.UserID, sid SessionID) bool
	Touch(uid domain.UserID, sid SessionID, at time.Time) bool
	EvictIdle(cutoff time.Time) []domain.UserID

	Broadcast(from SessionID, data Frame) PublishResult
	ApplyOperation(from SessionID, name string, op textbuf.Op, data Frame) (PublishResult, bool)
	PutFile(name, content string, data Frame) PublishResult
	DeleteFile(name string, data Frame) (PublishResult, bool)
}

// GreetFunc receives a room snapshot. It must not block.
type GreetFunc func(users []domain.User, files []domain.File)

type RoomInfo struct {
	ID    domain.RoomID `json:"id"`
	Users int           `json:"users"`
	Files int           `json:"files"`
}

type RoomManager interface {
	GetOrCreate(id domain.RoomID) RoomService
	GetRoom(id domain.RoomID) (RoomService, bool)
	// Join adds ms to the room, creating it if needed. created reports
	// whether this call created the room.
	Join(id domain.RoomID, ms MemberSession, greet GreetFunc) (room RoomService, created bool)
	RemoveIfEmpty(id domain.RoomID) bool
	StopRoom(id domain.RoomID)
	List() []RoomInfo
	Rooms() []RoomService
}
