package inspector

import (
	"container/heap"
	"context"
	"time"

	"github.com/Nao-Mk2/aws-lambda-logs/internal/model"
)

type result struct {
	ev  model.LogEvent
	err error
}

type mergeSource struct {
	ch      <-chan result
	head    *result
	arrived time.Time
	open    bool
}

// merger is a k-way merge over per-session channels keyed by timestamp.
// It holds at most one head per source and always emits the smallest head,
// so a busy source cannot starve the others. With window == 0 it waits until
// every open source has a head. With window > 0 the smallest head is also
// released once it has waited that long.
type merger struct {
	sources     []*mergeSource
	ready       <-chan struct{}
	window      time.Duration
	now         func() time.Time
	errOnCancel bool
}

func (m *merger) merge(ctx context.Context, yield func(model.LogEvent, error) bool) {
	h := &headHeap{sources: m.sources}
	for {
		if err := m.fill(h); err != nil {
			yield(model.LogEvent{}, err)
			return
		}

		waiting := 0
		for _, s := range m.sources {
			if s.open && s.head == nil {
				waiting++
			}
		}
		if h.Len() == 0 && waiting == 0 {
			return
		}

		var oldest time.Time
		for _, i := range h.idx {
			if a := m.sources[i].arrived; oldest.IsZero() || a.Before(oldest) {
				oldest = a
			}
		}
		if h.Len() > 0 && (waiting == 0 || (m.window > 0 && m.now().Sub(oldest) >= m.window)) {
			s := m.sources[heap.Pop(h).(int)]
			ev := s.head.ev
			s.head = nil
			if !yield(ev, nil) {
				return
			}
			continue
		}

		var (
			timer  *time.Timer
			expire <-chan time.Time
		)
		if h.Len() > 0 && m.window > 0 {
			timer = time.NewTimer(m.window - m.now().Sub(oldest))
			expire = timer.C
		}
		select {
		case <-m.ready:
		case <-expire:
		case <-ctx.Done():
			if m.errOnCancel {
				yield(model.LogEvent{}, ctx.Err())
			}
			return
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// fill takes a head from every open source that has one ready.
func (m *merger) fill(h *headHeap) error {
	for i, s := range m.sources {
		if !s.open || s.head != nil {
			continue
		}
		select {
		case r, ok := <-s.ch:
			if !ok {
				s.open = false
				continue
			}
			if r.err != nil {
				return r.err
			}
			s.head = &r
			s.arrived = m.now()
			heap.Push(h, i)
		default:
		}
	}
	return nil
}

// headHeap orders source indexes by head timestamp, then by source order.
type headHeap struct {
	idx     []int
	sources []*mergeSource
}

func (h *headHeap) Len() int { return len(h.idx) }
func (h *headHeap) Less(i, j int) bool {
	a, b := h.sources[h.idx[i]].head.ev.Timestamp, h.sources[h.idx[j]].head.ev.Timestamp
	if a == b {
		return h.idx[i] < h.idx[j]
	}
	return a < b
}
func (h *headHeap) Swap(i, j int) { h.idx[i], h.idx[j] = h.idx[j], h.idx[i] }
func (h *headHeap) Push(x any)   { h.idx = append(h.idx, x.(int)) }
func (h *headHeap) Pop() any {
	n := len(h.idx)
	v := h.idx[n-1]
	h.idx = h.idx[:n-1]
	return v
}
