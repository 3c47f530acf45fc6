package logs

import (
	"context"

	"github.com/Nao-Mk2/aws-lambda-logs/internal/model"
)

// TimeWindow is the half-open interval [Start, End) in epoch milliseconds.
// End == 0 denotes an open window.
type TimeWindow struct {
	Start int64
	End   int64
}

// Open reports whether the window has no end.
func (w TimeWindow) Open() bool { return w.End == 0 }

// Contains reports whether ts falls inside the window.
func (w TimeWindow) Contains(ts int64) bool {
	return ts >= w.Start && (w.Open() || ts < w.End)
}

// FetchRequest is one page request against a log group.
type FetchRequest struct {
	LogGroup  string
	Window    TimeWindow
	Filter    string // passed through verbatim; empty means no filter
	NextToken string // empty on the first page of a window
	Limit     int32  // 0 leaves the page size to the backend
}

// Page is one response page. NextToken is empty when the window has no more pages.
type Page struct {
	Events    []model.LogEvent
	NextToken string
}

// EventSource executes a single page request. Implementations classify
// failures into the Err* sentinels and never retry.
type EventSource interface {
	FetchPage(ctx context.Context, req FetchRequest) (Page, error)
}
