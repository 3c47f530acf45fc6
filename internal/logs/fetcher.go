package logs

import (
	"context"
	"iter"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Nao-Mk2/aws-lambda-logs/internal/model"
)

// Fetcher exposes bounded fetch and unbounded tail over an EventSource.
// Every call builds its own Cursor; nothing is shared between sessions.
type Fetcher struct {
	source EventSource
	cfg    Config
	log    zerolog.Logger
	now    func() time.Time
	sleep  sleepFunc
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithConfig sets the engine tuning.
func WithConfig(cfg Config) Option {
	return func(f *Fetcher) { f.cfg = cfg }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

// WithClock overrides the time source used to close tail windows.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// WithSleep overrides how backoff waits are performed. The function must
// return ctx.Err() promptly once ctx is done.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Fetcher) { f.sleep = sleep }
}

// NewFetcher returns a Fetcher reading from source.
func NewFetcher(source EventSource, opts ...Option) *Fetcher {
	f := &Fetcher{
		source: source,
		cfg:    DefaultConfig(),
		log:    zerolog.Nop(),
		now:    time.Now,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.cfg = f.cfg.normalized()
	return f
}

func (f *Fetcher) newSession(logGroup, filter string, start int64, ordered bool) *session {
	log := f.log.With().Str("session", uuid.NewString()).Str("log_group", logGroup).Logger()
	return &session{
		source:  f.source,
		planner: NewPlanner(logGroup, filter, f.cfg.MaxSpan, f.cfg.PageLimit),
		cursor:  NewCursor(start, f.cfg.Overlap),
		retry: &retrier{
			maxAttempts: f.cfg.RetryMaxAttempts,
			baseDelay:   f.cfg.RetryBaseDelay,
			maxDelay:    f.cfg.RetryMaxDelay,
			sleep:       f.sleep,
			log:         log,
		},
		log:     log,
		ordered: ordered,
		last:    start,
	}
}

// Fetch yields the events of logGroup in [start, end) in timestamp order and
// stops once the window is exhausted. An error is yielded at most once, as
// the last element. start after end fails with ErrInvalidTimeRange before any
// backend call; start equal to end yields nothing.
func (f *Fetcher) Fetch(ctx context.Context, logGroup, filter string, start, end time.Time) iter.Seq2[model.LogEvent, error] {
	return func(yield func(model.LogEvent, error) bool) {
		w := TimeWindow{Start: start.UnixMilli(), End: end.UnixMilli()}
		sess := f.newSession(logGroup, filter, w.Start, false)
		_, stopped, err := sess.run(ctx, w, func(ev model.LogEvent) bool {
			return yield(ev, nil)
		})
		if err != nil && !stopped {
			yield(model.LogEvent{}, err)
		}
	}
}

// NewScheduler builds a tail scheduler for logGroup starting at start.
func (f *Fetcher) NewScheduler(logGroup, filter string, start time.Time) *Scheduler {
	sess := f.newSession(logGroup, filter, start.UnixMilli(), true)
	s := &Scheduler{
		sess:  sess,
		cfg:   f.cfg,
		now:   f.now,
		sleep: f.sleep,
		log:   sess.log,
	}
	sess.retry.onBackoff = func(int, time.Duration) { s.setState(StateBackoff) }
	return s
}

// Tail yields events of logGroup from start onwards until ctx is cancelled or
// a fatal error occurs; breaking out of the range loop also stops it. The
// sequence can be ranged over once; a second range yields ErrSessionConsumed.
func (f *Fetcher) Tail(ctx context.Context, logGroup, filter string, start time.Time) iter.Seq2[model.LogEvent, error] {
	s := f.NewScheduler(logGroup, filter, start)
	var used atomic.Bool
	return func(yield func(model.LogEvent, error) bool) {
		if used.Swap(true) {
			yield(model.LogEvent{}, ErrSessionConsumed)
			return
		}
		stopped := false
		err := s.Run(ctx, func(ev model.LogEvent) bool {
			if !yield(ev, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			yield(model.LogEvent{}, err)
		}
	}
}
