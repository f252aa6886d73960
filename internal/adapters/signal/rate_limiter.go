package signal

import (
	"sync"
	"time"

	"github.com/dkeye/CollabRelay/internal/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per connection.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[core.SessionID]*rate.Limiter
	limit    rate.Limit
	burst    int
	dropLog  zerolog.Logger
}

// NewRateLimiter allows perSecond frames with the given burst. A
// non-positive rate disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[core.SessionID]*rate.Limiter),
		limit:    limit,
		burst:    burst,
		dropLog:  log.Sample(&zerolog.BurstSampler{Burst: 1, Period: 5 * time.Second}),
	}
}

func (rl *RateLimiter) Allow(sid core.SessionID) bool {
	rl.mu.Lock()
	l, ok := rl.limiters[sid]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[sid] = l
	}
	rl.mu.Unlock()

	if l.Allow() {
		return true
	}
	rl.dropLog.Warn().Str("module", "signal.ratelimit").Str("sid", string(sid)).Msg("frame dropped, rate exceeded")
	return false
}

func (rl *RateLimiter) Forget(sid core.SessionID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.limiters, sid)
}
