package inspector

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Nao-Mk2/aws-lambda-logs/internal/model"
)

// EventStreamer is the per-group engine the inspector fans out to.
type EventStreamer interface {
	Fetch(ctx context.Context, logGroup, filter string, start, end time.Time) iter.Seq2[model.LogEvent, error]
	Tail(ctx context.Context, logGroup, filter string, start time.Time) iter.Seq2[model.LogEvent, error]
}

// Inspector reads several log groups at once and merges them by timestamp.
// Each group runs as an independent session with its own cursor.
type Inspector struct {
	streamer    EventStreamer
	groups      []string
	buffer      int
	mergeWindow time.Duration
	log         zerolog.Logger
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithBuffer sets how many events each session may run ahead of the merge.
func WithBuffer(n int) Option {
	return func(in *Inspector) {
		if n > 0 {
			in.buffer = n
		}
	}
}

// WithMergeWindow sets how long a tail merge holds the oldest buffered event
// while waiting for quiet groups.
func WithMergeWindow(d time.Duration) Option {
	return func(in *Inspector) { in.mergeWindow = d }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(in *Inspector) { in.log = l }
}

// New creates an Inspector.
func New(streamer EventStreamer, groups []string, opts ...Option) *Inspector {
	in := &Inspector{
		streamer:    streamer,
		groups:      groups,
		buffer:      64,
		mergeWindow: 2 * time.Second,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Fetch yields the events of every group in [start, end), merged in
// timestamp order. The merge waits for every open group before emitting.
func (in *Inspector) Fetch(ctx context.Context, filter string, start, end time.Time) iter.Seq2[model.LogEvent, error] {
	return in.run(ctx, 0, true, func(ctx context.Context, group string) iter.Seq2[model.LogEvent, error] {
		return in.streamer.Fetch(ctx, group, filter, start, end)
	})
}

// Tail follows every group from start until ctx is cancelled.
func (in *Inspector) Tail(ctx context.Context, filter string, start time.Time) iter.Seq2[model.LogEvent, error] {
	return in.run(ctx, in.mergeWindow, false, func(ctx context.Context, group string) iter.Seq2[model.LogEvent, error] {
		return in.streamer.Tail(ctx, group, filter, start)
	})
}

type openFunc func(ctx context.Context, group string) iter.Seq2[model.LogEvent, error]

func (in *Inspector) run(ctx context.Context, window time.Duration, errOnCancel bool, open openFunc) iter.Seq2[model.LogEvent, error] {
	return func(yield func(model.LogEvent, error) bool) {
		if len(in.groups) == 0 {
			yield(model.LogEvent{}, errors.New("no log groups configured"))
			return
		}
		if len(in.groups) == 1 {
			for ev, err := range open(ctx, in.groups[0]) {
				if !yield(ev, err) || err != nil {
					return
				}
			}
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		g, gctx := errgroup.WithContext(ctx)
		ready := make(chan struct{}, 1)
		sources := make([]*mergeSource, len(in.groups))
		for i, group := range in.groups {
			ch := make(chan result, in.buffer)
			sources[i] = &mergeSource{ch: ch, open: true}
			g.Go(func() error {
				defer func() {
					close(ch)
					notify(ready)
				}()
				for ev, err := range open(gctx, group) {
					select {
					case ch <- result{ev: ev, err: err}:
						notify(ready)
					case <-gctx.Done():
						return nil
					}
					if err != nil {
						return nil
					}
				}
				return nil
			})
		}
		// Sessions are torn down on every exit path.
		defer func() {
			cancel()
			_ = g.Wait()
		}()

		in.log.Debug().Int("groups", len(in.groups)).Dur("window", window).Msg("merging sessions")
		m := &merger{sources: sources, ready: ready, window: window, now: time.Now, errOnCancel: errOnCancel}
		m.merge(ctx, yield)
	}
}

// notify wakes the merger without blocking.
func notify(ready chan<- struct{}) {
	select {
	case ready <- struct{}{}:
	default:
	}
}
