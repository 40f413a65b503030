package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Processor is one unit of periodic work driven by the scheduler.
type Processor interface {
	Name() string
	Process(ctx context.Context) error
}

// Locker is a lease shared between replicas. Only the holder runs a tick.
type Locker interface {
	Acquire(ctx context.Context) (token string, ok bool, err error)
	Release(ctx context.Context, token string) error
}

// Scheduler runs its processors one after another on every tick, in the
// order they were registered. Ticks never overlap: a tick that fires while
// the previous one is still running is skipped.
type Scheduler struct {
	interval   time.Duration
	processors []Processor
	locker     Locker
	logger     zerolog.Logger

	running sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewScheduler(interval time.Duration, logger zerolog.Logger, processors ...Processor) *Scheduler {
	return &Scheduler{
		interval:   interval,
		processors: processors,
		logger:     logger,
	}
}

// WithLocker makes every tick take the lease first; a tick is skipped when
// another replica holds it.
func (s *Scheduler) WithLocker(l Locker) *Scheduler {
	s.locker = l
	return s
}

func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.logger.Info().Dur("interval", s.interval).Int("processors", len(s.processors)).Msg("Starting scheduler")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.wg.Add(1)
				go func() {
					defer s.wg.Done()
					s.RunTick(ctx)
				}()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the running tick and waits for it to return.
func (s *Scheduler) Stop() {
	s.logger.Info().Msg("Stopping scheduler")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info().Msg("Scheduler stopped")
}

// RunTick runs every processor once. It returns false when the tick was
// skipped.
func (s *Scheduler) RunTick(ctx context.Context) bool {
	if !s.running.TryLock() {
		s.logger.Warn().Msg("Previous tick still running, skipping")
		return false
	}
	defer s.running.Unlock()

	if s.locker != nil {
		token, ok, err := s.locker.Acquire(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to acquire tick lock, skipping")
			return false
		}
		if !ok {
			s.logger.Debug().Msg("Tick lock held by another replica, skipping")
			return false
		}
		defer func() {
			// The tick context may already be cancelled on shutdown.
			if err := s.locker.Release(context.WithoutCancel(ctx), token); err != nil {
				s.logger.Warn().Err(err).Msg("Failed to release tick lock")
			}
		}()
	}

	start := time.Now()
	for _, p := range s.processors {
		if ctx.Err() != nil {
			break
		}
		if err := s.runProcessor(ctx, p); err != nil {
			s.logger.Error().Err(err).Str("processor", p.Name()).Msg("Processor failed")
		}
	}
	s.logger.Debug().Dur("took", time.Since(start)).Msg("Tick finished")
	return true
}

func (s *Scheduler) runProcessor(ctx context.Context, p Processor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.Process(ctx)
}
