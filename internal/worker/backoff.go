package worker

import "time"

// RetryPolicy bounds task re-enqueues: an attempt ceiling and an
// exponential delay curve. Delay and the ceiling are plain data so the
// curve is testable without running tasks.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy mirrors the operational defaults: three attempts,
// one second base delay doubling per attempt, capped at thirty seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Delay returns how long to wait before re-enqueueing a task that has
// already run attempt+1 times. The delay doubles per attempt up to
// MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}

	if delay > p.MaxDelay {
		return p.MaxDelay
	}

	return delay
}

// Exhausted reports whether a task that has run attempt+1 times is out
// of retries.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return attempt+1 >= p.MaxAttempts
}
