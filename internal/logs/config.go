package logs

import "time"

// Config tunes the fetch and tail engine.
type Config struct {
	// Overlap is how far behind the watermark each tail poll starts. Ids
	// seen within it are remembered so re-read events are not emitted twice.
	// Tail output is kept in timestamp order, so an event arriving after a
	// later one was emitted is withheld and counted by Scheduler.Dropped;
	// only late events sharing the watermark timestamp are still emitted.
	Overlap time.Duration
	// MaxSpan bounds the time span of one page request; 0 disables splitting.
	// Events of a span are buffered across its pages and sorted before they
	// are emitted, so it also bounds that buffer.
	MaxSpan time.Duration
	// PageLimit bounds events per page; 0 leaves it to the backend.
	PageLimit int32

	PollMinInterval time.Duration
	PollMaxInterval time.Duration
	PollMultiplier  float64

	// RetryMaxAttempts is the number of calls allowed per page request,
	// the first one included.
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Overlap:          5 * time.Second,
		PollMinInterval:  time.Second,
		PollMaxInterval:  10 * time.Second,
		PollMultiplier:   2,
		RetryMaxAttempts: 5,
		RetryBaseDelay:   200 * time.Millisecond,
		RetryMaxDelay:    5 * time.Second,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.PollMinInterval <= 0 {
		c.PollMinInterval = d.PollMinInterval
	}
	if c.PollMaxInterval < c.PollMinInterval {
		c.PollMaxInterval = c.PollMinInterval
	}
	if c.PollMultiplier < 1 {
		c.PollMultiplier = d.PollMultiplier
	}
	if c.RetryMaxAttempts < 1 {
		c.RetryMaxAttempts = 1
	}
	if c.Overlap < 0 {
		c.Overlap = 0
	}
	return c
}
