package retryutil

import (
	"context"
	"errors"
	"testing"
	"time"
)

type tempError struct{ temp bool }

func (e tempError) Error() string   { return "temp error" }
func (e tempError) Temporary() bool { return e.temp }

func TestDoSucceedsWithoutRetry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Base: time.Millisecond, Factor: 2, Cap: time.Millisecond, MaxAttempts: 3}, func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Base: time.Millisecond, Factor: 1, Cap: time.Millisecond, MaxAttempts: 3}, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return tempError{temp: true}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	perm := tempError{temp: false}
	err := Do(context.Background(), Policy{Base: time.Millisecond, Factor: 1, Cap: time.Millisecond, MaxAttempts: 5}, func(ctx context.Context) error {
		calls++
		return perm
	})
	if !errors.Is(err, perm) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call before giving up, got %d", calls)
	}
}

func TestDoExhaustsMaxAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Base: time.Millisecond, Factor: 1, Cap: time.Millisecond, MaxAttempts: 4}, func(ctx context.Context) error {
		calls++
		return tempError{temp: true}
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 4 {
		t.Fatalf("expected 4 calls, got %d", calls)
	}
}

func TestDelayIsCapped(t *testing.T) {
	p := Default
	d := p.Delay(20)
	if d != p.Cap {
		t.Fatalf("expected delay capped at %v, got %v", p.Cap, d)
	}
}
