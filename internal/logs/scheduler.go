package logs

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nao-Mk2/aws-lambda-logs/internal/model"
)

// State is the tail scheduler state.
type State int32

const (
	StatePolling State = iota
	StateBackoff
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateBackoff:
		return "backoff"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Scheduler drives repeated polls of a log group for tail mode. Each poll
// covers [cursor.NextWindowStart(), now). A poll that emits events is
// followed immediately by another; an empty poll sleeps for the current
// interval, which then grows up to the ceiling.
type Scheduler struct {
	sess  *session
	cfg   Config
	now   func() time.Time
	sleep sleepFunc
	log   zerolog.Logger

	state    atomic.Int32
	interval atomic.Int64
}

// State returns the current state. Safe for concurrent use.
func (s *Scheduler) State() State { return State(s.state.Load()) }

// Interval returns the current poll interval. Safe for concurrent use.
func (s *Scheduler) Interval() time.Duration { return time.Duration(s.interval.Load()) }

// Dropped returns how many late events were withheld to keep output ordered.
// Safe for concurrent use.
func (s *Scheduler) Dropped() int64 { return s.sess.dropped.Load() }

// Run polls until ctx is cancelled, emit returns false, or a fatal error
// occurs. Cancellation and consumer stop return nil. Run is not reentrant.
func (s *Scheduler) Run(ctx context.Context, emit func(model.LogEvent) bool) error {
	defer s.setState(StateCancelled)

	interval := s.cfg.PollMinInterval
	s.interval.Store(int64(interval))
	for {
		if ctx.Err() != nil {
			return nil
		}
		s.setState(StatePolling)

		w := TimeWindow{Start: s.sess.cursor.NextWindowStart(), End: s.now().UnixMilli()}
		var (
			n       int
			stopped bool
			err     error
		)
		if w.End > w.Start {
			n, stopped, err = s.sess.run(ctx, w, emit)
		}
		if stopped {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if n > 0 {
			interval = s.cfg.PollMinInterval
			s.interval.Store(int64(interval))
			continue
		}

		s.setState(StateBackoff)
		s.log.Debug().Dur("interval", interval).Int64("watermark", s.sess.cursor.Watermark()).Msg("no new events")
		if err := s.sleep(ctx, interval); err != nil {
			return nil
		}
		interval = s.grow(interval)
		s.interval.Store(int64(interval))
	}
}

func (s *Scheduler) grow(d time.Duration) time.Duration {
	next := time.Duration(float64(d) * s.cfg.PollMultiplier)
	if next > s.cfg.PollMaxInterval {
		next = s.cfg.PollMaxInterval
	}
	return next
}

func (s *Scheduler) setState(st State) { s.state.Store(int32(st)) }
