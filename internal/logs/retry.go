package logs

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
)

type sleepFunc func(ctx context.Context, d time.Duration) error

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retrier executes page requests, retrying transient failures with
// exponential backoff and jitter up to maxAttempts calls per request.
type retrier struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	sleep       sleepFunc
	log         zerolog.Logger
	onBackoff   func(attempt int, d time.Duration)
}

func (r *retrier) fetch(ctx context.Context, src EventSource, req FetchRequest) (Page, error) {
	for attempt := 1; ; attempt++ {
		page, err := src.FetchPage(ctx, req)
		if err == nil {
			return page, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Page{}, ctxErr
		}
		if !IsRetryable(err) {
			return Page{}, err
		}
		if attempt >= r.maxAttempts {
			r.log.Warn().Err(err).Int("attempts", attempt).Msg("retry budget exhausted")
			return Page{}, &RetriesExhaustedError{Attempts: attempt, Err: err}
		}
		d := r.delay(attempt)
		r.log.Debug().Err(err).Int("attempt", attempt).Dur("delay", d).Msg("retrying page request")
		if r.onBackoff != nil {
			r.onBackoff(attempt, d)
		}
		if err := r.sleep(ctx, d); err != nil {
			return Page{}, err
		}
	}
}

// delay returns base*2^(attempt-1) capped at maxDelay, with equal jitter.
func (r *retrier) delay(attempt int) time.Duration {
	d := r.baseDelay
	for i := 1; i < attempt && d < r.maxDelay; i++ {
		d *= 2
	}
	if r.maxDelay > 0 && d > r.maxDelay {
		d = r.maxDelay
	}
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + rand.N(half+1)
}
