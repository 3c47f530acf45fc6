package logs

import (
	"cmp"
	"context"
	"slices"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/Nao-Mk2/aws-lambda-logs/internal/model"
)

// session binds the planner, source and cursor of one fetch or tail.
type session struct {
	source  EventSource
	retry   *retrier
	planner *Planner
	cursor  *Cursor
	log     zerolog.Logger

	// ordered drops admitted events older than the last emitted one.
	ordered bool
	last    int64
	dropped atomic.Int64
}

// run executes one planned window. Pages of a slice are buffered until the
// slice is complete, then emitted in timestamp order, so a page carrying
// older events than its predecessor cannot reorder or lose them. It returns
// how many events were emitted and whether emit asked to stop.
func (s *session) run(ctx context.Context, w TimeWindow, emit func(model.LogEvent) bool) (int, bool, error) {
	plan, err := s.planner.Plan(w)
	if err != nil {
		return 0, false, err
	}
	emitted := 0
	var pending []model.LogEvent
	for {
		req, ok := plan.Next()
		if !ok {
			return emitted, false, nil
		}
		if err := ctx.Err(); err != nil {
			return emitted, false, err
		}
		s.log.Debug().
			Int64("start", req.Window.Start).
			Int64("end", req.Window.End).
			Bool("continued", req.NextToken != "").
			Msg("requesting page")

		page, err := s.retry.fetch(ctx, s.source, req)
		if err != nil {
			return emitted, false, err
		}
		for _, ev := range page.Events {
			if req.Window.Contains(ev.Timestamp) {
				pending = append(pending, ev)
			}
		}

		plan.Advance(page.NextToken)
		if plan.Continuing() {
			continue
		}

		n, stopped := s.flush(pending, emit)
		emitted += n
		if stopped {
			return emitted, true, nil
		}
		pending = pending[:0]
	}
}

// flush emits one completed slice.
func (s *session) flush(events []model.LogEvent, emit func(model.LogEvent) bool) (int, bool) {
	slices.SortStableFunc(events, func(a, b model.LogEvent) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
	n := 0
	for _, ev := range events {
		if !s.cursor.Admit(ev) {
			continue
		}
		if s.ordered && ev.Timestamp < s.last {
			s.dropped.Add(1)
			s.log.Debug().Str("event_id", ev.ID).Int64("timestamp", ev.Timestamp).Msg("dropping late event")
			continue
		}
		s.last = ev.Timestamp
		n++
		if !emit(ev) {
			return n, true
		}
	}
	return n, false
}
