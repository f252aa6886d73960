package db

import (
	"sync"
	"time"

	"github.com/dkeye/CollabRelay/internal/domain"
	"github.com/rs/zerolog/log"
)

type eventKind int

const (
	eventOpened eventKind = iota
	eventJoined
	eventClosed
)

type event struct {
	kind    eventKind
	room    domain.RoomID
	members int
	at      time.Time
}

// Recorder writes journal events on its own goroutine so room handlers never
// wait on disk. Events arriving while the queue is full are dropped.
type Recorder struct {
	database *Database
	events   chan event
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewRecorder(database *Database, queue int) *Recorder {
	if queue < 1 {
		queue = 1
	}
	r := &Recorder{
		database: database,
		events:   make(chan event, queue),
		now:      time.Now,
	}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *Recorder) RoomOpened(id domain.RoomID) {
	r.enqueue(event{kind: eventOpened, room: id, at: r.now()})
}

func (r *Recorder) MemberJoined(id domain.RoomID, _ domain.UserID, members int) {
	r.enqueue(event{kind: eventJoined, room: id, members: members})
}

func (r *Recorder) RoomClosed(id domain.RoomID) {
	r.enqueue(event{kind: eventClosed, room: id, at: r.now()})
}

func (r *Recorder) Stats() (Stats, error) {
	return r.database.GetStats()
}

// Close flushes queued events and stops the writer. The database itself is
// left open.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.events)
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Recorder) enqueue(e event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.events <- e:
	default:
		log.Warn().Str("module", "db.journal").Str("room", string(e.room)).Msg("journal queue full, event dropped")
	}
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for e := range r.events {
		var err error
		switch e.kind {
		case eventOpened:
			err = r.database.RoomOpened(string(e.room), e.at)
		case eventJoined:
			err = r.database.MemberJoined(string(e.room), e.members)
		case eventClosed:
			err = r.database.RoomClosed(string(e.room), e.at)
		}
		if err != nil {
			log.Error().Err(err).Str("module", "db.journal").Str("room", string(e.room)).Msg("journal write failed")
		}
	}
}
