package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type SweepResult struct {
	Evicted      int
	RoomsRemoved int
}

// IdleSweeper evicts members not seen since cutoff and drops emptied rooms.
type IdleSweeper interface {
	SweepIdle(cutoff time.Time) SweepResult
}

type SweeperConfig struct {
	Interval    time.Duration
	IdleTimeout time.Duration
}

func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:    5 * time.Minute,
		IdleTimeout: 5 * time.Minute,
	}
}

// Sweeper runs the process-wide idle sweep for the lifetime of the server.
type Sweeper struct {
	target IdleSweeper
	config SweeperConfig
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func NewSweeper(target IdleSweeper, config SweeperConfig) *Sweeper {
	return &Sweeper{
		target: target,
		config: config,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.run()
	log.Info().Str("module", "app.sweeper").Dur("interval", s.config.Interval).Dur("idle_timeout", s.config.IdleTimeout).Msg("sweeper started")
}

func (s *Sweeper) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
	log.Info().Str("module", "app.sweeper").Msg("sweeper stopped")
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.SweepNow()
		}
	}
}

func (s *Sweeper) SweepNow() SweepResult {
	res := s.target.SweepIdle(s.now().Add(-s.config.IdleTimeout))
	if res.Evicted > 0 || res.RoomsRemoved > 0 {
		log.Info().Str("module", "app.sweeper").Int("evicted", res.Evicted).Int("rooms_removed", res.RoomsRemoved).Msg("idle sweep")
	}
	return res
}
