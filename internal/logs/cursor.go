package logs

import (
	"container/heap"
	"time"

	"github.com/Nao-Mk2/aws-lambda-logs/internal/model"
)

// Cursor tracks the watermark of a session and the ids seen within the
// overlap tolerance behind it. It is owned by exactly one session.
type Cursor struct {
	floor     int64 // session start; the cursor never rewinds below it
	watermark int64
	overlap   int64 // ms
	seen      map[string]struct{}
	expiry    seenHeap
}

// NewCursor returns a cursor positioned at start (epoch ms).
func NewCursor(start int64, overlap time.Duration) *Cursor {
	return &Cursor{
		floor:     start,
		watermark: start,
		overlap:   max(overlap.Milliseconds(), 0),
		seen:      make(map[string]struct{}),
	}
}

// Admit reports whether ev has not been seen before. New events are recorded
// and advance the watermark. Events older than the overlap tolerance are
// treated as already emitted.
func (c *Cursor) Admit(ev model.LogEvent) bool {
	if ev.Timestamp < c.cutoff() {
		return false
	}
	key := ev.Key()
	if _, ok := c.seen[key]; ok {
		return false
	}
	c.seen[key] = struct{}{}
	heap.Push(&c.expiry, seenEntry{key: key, ts: ev.Timestamp})
	if ev.Timestamp > c.watermark {
		c.watermark = ev.Timestamp
		c.evict()
	}
	return true
}

// NextWindowStart is where the next poll should begin: the watermark minus
// the overlap tolerance, never before the session start.
func (c *Cursor) NextWindowStart() int64 {
	return c.cutoff()
}

// Watermark is the largest timestamp admitted so far, or the start.
func (c *Cursor) Watermark() int64 { return c.watermark }

// Len is the number of ids currently remembered.
func (c *Cursor) Len() int { return len(c.seen) }

func (c *Cursor) cutoff() int64 {
	return max(c.watermark-c.overlap, c.floor)
}

func (c *Cursor) evict() {
	cut := c.cutoff()
	for c.expiry.Len() > 0 && c.expiry[0].ts < cut {
		e := heap.Pop(&c.expiry).(seenEntry)
		delete(c.seen, e.key)
	}
}

type seenEntry struct {
	key string
	ts  int64
}

// seenHeap is a min-heap of seen ids ordered by event timestamp.
type seenHeap []seenEntry

func (h seenHeap) Len() int           { return len(h) }
func (h seenHeap) Less(i, j int) bool { return h[i].ts < h[j].ts }
func (h seenHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *seenHeap) Push(x any)        { *h = append(*h, x.(seenEntry)) }
func (h *seenHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
