package core

import (
	"sync"
	"time"

	"github.com/dkeye/CollabRelay/internal/domain"
	"github.com/dkeye/CollabRelay/internal/textbuf"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	room   *domain.Room
	mu     sync.Mutex
	byUser map[domain.UserID]MemberSession
	files  map[string]string
	order  []string
}

func NewRoomService(room *domain.Room, seed []domain.File) RoomService {
	r := &roomImpl{
		room:   room,
		byUser: make(map[domain.UserID]MemberSession),
		files:  make(map[string]string, len(seed)),
	}
	for _, f := range seed {
		r.putLocked(f.Name, f.Content)
	}
	return r
}

func (r *roomImpl) Room() *domain.Room { return r.room }

func (r *roomImpl) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}

func (r *roomImpl) FileCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MemberDTO, 0, len(r.byUser))
	for _, ms := range r.byUser {
		m := ms.Meta()
		out = append(out, MemberDTO{
			ID:       m.User.ID,
			Name:     m.User.Name,
			Color:    m.User.Color,
			LastSeen: m.LastSeen,
		})
	}
	return out
}

func (r *roomImpl) FilesSnapshot() []domain.File {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filesLocked()
}

func (r *roomImpl) FileNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *roomImpl) AddMember(ms MemberSession, greet GreetFunc) {
	u := ms.Meta().User.ID
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[u] = ms
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("sid", string(ms.SID())).Str("user", string(u)).Msg("member added")
	if greet != nil {
		greet(r.usersLocked(), r.filesLocked())
	}
}

func (r *roomImpl) RemoveMember(uid domain.UserID, sid SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms, ok := r.byUser[uid]
	if !ok || ms.SID() != sid {
		return false
	}
	delete(r.byUser, uid)
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("sid", string(sid)).Str("user", string(uid)).Msg("member removed")
	return true
}

func (r *roomImpl) Touch(uid domain.UserID, sid SessionID, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms, ok := r.byUser[uid]
	if !ok || ms.SID() != sid {
		return false
	}
	ms.Meta().LastSeen = at
	return true
}

func (r *roomImpl) EvictIdle(cutoff time.Time) []domain.UserID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var evicted []domain.UserID
	for uid, ms := range r.byUser {
		if ms.Meta().IdleSince(cutoff) {
			delete(r.byUser, uid)
			evicted = append(evicted, uid)
		}
	}
	if len(evicted) > 0 {
		log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Int("evicted", len(evicted)).Msg("idle members evicted")
	}
	return evicted
}

func (r *roomImpl) Broadcast(from SessionID, data Frame) PublishResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.broadcastLocked(from, data)
}

func (r *roomImpl) ApplyOperation(from SessionID, name string, op textbuf.Op, data Frame) (PublishResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	content, ok := r.files[name]
	if !ok {
		return PublishResult{}, false
	}
	r.files[name] = textbuf.Apply(content, op)
	return r.broadcastLocked(from, data), true
}

func (r *roomImpl) PutFile(name, content string, data Frame) PublishResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putLocked(name, content)
	return r.broadcastLocked(AllMembers, data)
}

func (r *roomImpl) DeleteFile(name string, data Frame) (PublishResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, existed := r.files[name]
	if existed {
		delete(r.files, name)
		for i, n := range r.order {
			if n == name {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	return r.broadcastLocked(AllMembers, data), existed
}

func (r *roomImpl) putLocked(name, content string) {
	if _, ok := r.files[name]; !ok {
		r.order = append(r.order, name)
	}
	r.files[name] = content
}

func (r *roomImpl) usersLocked() []domain.User {
	out := make([]domain.User, 0, len(r.byUser))
	for _, ms := range r.byUser {
		out = append(out, *ms.Meta().User)
	}
	return out
}

func (r *roomImpl) filesLocked() []domain.File {
	out := make([]domain.File, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, domain.File{Name: name, Content: r.files[name]})
	}
	return out
}

// broadcastLocked evicts every member whose send fails.
func (r *roomImpl) broadcastLocked(from SessionID, data Frame) PublishResult {
	res := PublishResult{}
	for uid, m := range r.byUser {
		if from != AllMembers && m.SID() == from {
			continue
		}
		if err := m.Signal().TrySend(data); err != nil {
			delete(r.byUser, uid)
			res.Dropped = append(res.Dropped, m)
			log.Warn().Err(err).Str("module", "core.room").Str("room", string(r.room.ID)).Str("user", string(uid)).Msg("send failed, member evicted")
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("from", string(from)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
