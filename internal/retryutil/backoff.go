// Package retryutil implements the exponential backoff policy shared by
// every external-collaborator call: forecast fetches, oracle calls,
// deployer RPCs and queue submissions (§7).
package retryutil

import (
	"context"
	"time"
)

// Policy is the shared retry schedule: base 500ms, factor 2, cap 8s, at
// most MaxAttempts tries.
type Policy struct {
	Base        time.Duration
	Factor      float64
	Cap         time.Duration
	MaxAttempts int
}

// Default is the policy named in §7.
var Default = Policy{
	Base:        500 * time.Millisecond,
	Factor:      2,
	Cap:         8 * time.Second,
	MaxAttempts: 5,
}

// Delay returns Base*Factor^attempt, capped at Cap. Do waits Delay(0)
// before the 2nd attempt, Delay(1) before the 3rd, and so on.
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.Base)
	for i := 0; i < attempt; i++ {
		d *= p.Factor
	}
	delay := time.Duration(d)
	if delay > p.Cap {
		delay = p.Cap
	}
	return delay
}

// Retryable is returned by the operation to distinguish transient failures
// (retry) from permanent ones (give up immediately).
type Retryable interface {
	error
	Temporary() bool
}

// Do runs op until it succeeds, returns a non-Retryable error, exhausts
// MaxAttempts, or ctx is done. The first attempt is not delayed.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Delay(attempt - 1)):
			}
		}
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if r, ok := err.(Retryable); ok && !r.Temporary() {
			return err
		}
	}
	return lastErr
}
