package logs

import (
	"fmt"
	"time"
)

// Planner turns a time window into page requests for one log group.
type Planner struct {
	logGroup string
	filter   string
	maxSpan  int64 // ms; 0 means one slice covers the whole window
	limit    int32
}

// NewPlanner returns a Planner. maxSpan bounds the time span of a single
// request and limit the number of events per page; zero disables either.
func NewPlanner(logGroup, filter string, maxSpan time.Duration, limit int32) *Planner {
	return &Planner{
		logGroup: logGroup,
		filter:   filter,
		maxSpan:  maxSpan.Milliseconds(),
		limit:    limit,
	}
}

// Plan validates w and returns a lazy request sequence covering it.
func (p *Planner) Plan(w TimeWindow) (*Plan, error) {
	if !w.Open() && w.Start > w.End {
		return nil, fmt.Errorf("%w: start %d is after end %d", ErrInvalidTimeRange, w.Start, w.End)
	}
	return &Plan{
		planner: p,
		window:  w,
		cur:     w.Start,
		done:    !w.Open() && w.Start == w.End,
	}, nil
}

// Plan walks a window slice by slice, following continuation tokens within a
// slice before moving to the next one.
type Plan struct {
	planner *Planner
	window  TimeWindow
	cur     int64
	token   string
	done    bool
}

// Next returns the next request, or false once the window is exhausted.
func (pl *Plan) Next() (FetchRequest, bool) {
	if pl.done {
		return FetchRequest{}, false
	}
	return FetchRequest{
		LogGroup:  pl.planner.logGroup,
		Window:    pl.slice(),
		Filter:    pl.planner.filter,
		NextToken: pl.token,
		Limit:     pl.planner.limit,
	}, true
}

// Advance records the continuation token of the page just fetched. An empty
// token, or one equal to the token just sent, closes the current slice.
func (pl *Plan) Advance(nextToken string) {
	if pl.done {
		return
	}
	if nextToken != "" && nextToken != pl.token {
		pl.token = nextToken
		return
	}
	pl.token = ""
	s := pl.slice()
	if s.Open() || s.End >= pl.window.End {
		pl.done = true
		return
	}
	pl.cur = s.End
}

// Done reports whether the plan has no more requests.
func (pl *Plan) Done() bool { return pl.done }

// Continuing reports whether the next request follows a continuation token
// within the current slice.
func (pl *Plan) Continuing() bool { return !pl.done && pl.token != "" }

func (pl *Plan) slice() TimeWindow {
	if pl.window.Open() {
		return TimeWindow{Start: pl.cur}
	}
	end := pl.window.End
	if span := pl.planner.maxSpan; span > 0 && pl.cur+span < end {
		end = pl.cur + span
	}
	return TimeWindow{Start: pl.cur, End: end}
}
