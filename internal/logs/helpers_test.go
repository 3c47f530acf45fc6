package logs

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/Nao-Mk2/aws-lambda-logs/internal/model"
)

// fakeSource records requests and delegates responses to fn.
type fakeSource struct {
	mu    sync.Mutex
	calls []FetchRequest
	fn    func(call int, req FetchRequest) (Page, error)
}

func (f *fakeSource) FetchPage(ctx context.Context, req FetchRequest) (Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	n := len(f.calls)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	return f.fn(n, req)
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// windowed serves events inside the requested window, pageSize at a time,
// with the offset as continuation token.
func windowed(events []model.LogEvent, pageSize int) func(int, FetchRequest) (Page, error) {
	return func(_ int, req FetchRequest) (Page, error) {
		var in []model.LogEvent
		for _, e := range events {
			if req.Window.Contains(e.Timestamp) {
				in = append(in, e)
			}
		}
		off := 0
		if req.NextToken != "" {
			off, _ = strconv.Atoi(req.NextToken)
		}
		if pageSize <= 0 || off+pageSize >= len(in) {
			return Page{Events: slices.Clone(in[min(off, len(in)):])}, nil
		}
		return Page{Events: slices.Clone(in[off : off+pageSize]), NextToken: strconv.Itoa(off + pageSize)}, nil
	}
}

func ev(id string, ts int64) model.LogEvent {
	return model.LogEvent{ID: id, Timestamp: ts, LogGroup: "g1", LogStream: "s1", Message: "msg " + id}
}

func ms(v int64) time.Time { return time.UnixMilli(v) }

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func collect(seq func(func(model.LogEvent, error) bool)) ([]model.LogEvent, error) {
	var out []model.LogEvent
	var err error
	seq(func(e model.LogEvent, e2 error) bool {
		if e2 != nil {
			err = e2
			return false
		}
		out = append(out, e)
		return true
	})
	return out, err
}

func ids(events []model.LogEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}
