package janitor

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// Sweeper performs the periodic cleanups. Both methods return how many entries were removed.
type Sweeper interface {
	SweepRooms(ctx context.Context) (int, error)
	SweepRateLimits(ctx context.Context) (int, error)
}

// Options configures a Scheduler.
type Options struct {
	Clock             clock.Clock
	RoomInterval      time.Duration
	RateLimitInterval time.Duration
	Logger            *zerolog.Logger
}

// Scheduler runs the room expiry and rate-limit eviction sweeps on independent tickers.
type Scheduler struct {
	sweeper Sweeper
	clock   clock.Clock
	rooms   time.Duration
	limits  time.Duration
	log     *zerolog.Logger

	wg sync.WaitGroup
}

// New builds a scheduler. Non-positive intervals fall back to one hour and five minutes.
func New(sweeper Sweeper, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.RoomInterval <= 0 {
		opts.RoomInterval = time.Hour
	}
	if opts.RateLimitInterval <= 0 {
		opts.RateLimitInterval = 5 * time.Minute
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	return &Scheduler{
		sweeper: sweeper,
		clock:   opts.Clock,
		rooms:   opts.RoomInterval,
		limits:  opts.RateLimitInterval,
		log:     opts.Logger,
	}
}

// Start launches both sweep loops. They stop when ctx is cancelled.
// The tickers exist by the time Start returns.
func (s *Scheduler) Start(ctx context.Context) {
	roomTicker := s.clock.Ticker(s.rooms)
	limitTicker := s.clock.Ticker(s.limits)

	s.wg.Add(2)
	go s.loop(ctx, "room_expiry", roomTicker, s.sweeper.SweepRooms)
	go s.loop(ctx, "rate_limit_eviction", limitTicker, s.sweeper.SweepRateLimits)

	s.log.Info().Dur("room_interval", s.rooms).Dur("rate_limit_interval", s.limits).Msg("janitor started")
}

// Wait blocks until both loops have exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, name string, ticker *clock.Ticker, sweep func(context.Context) (int, error)) {
	defer s.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, name, sweep)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, name string, sweep func(context.Context) (int, error)) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("sweep", name).Interface("panic", r).Msg("sweep panicked")
		}
	}()

	n, err := sweep(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Warn().Err(err).Str("sweep", name).Msg("sweep failed")
		return
	}
	s.log.Debug().Str("sweep", name).Int("removed", n).Msg("sweep finished")
}
