package memory

import (
	"context"
	"sync"
	"testing"
	"time"
)

const (
	testThreshold = 5
	testLockFor   = 15 * time.Minute
)

func TestLoginAttemptStore_CountsFailures(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	store := NewLoginAttemptStore().WithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 1; i <= testThreshold-1; i++ {
		state, err := store.Fail(ctx, "ip:203.0.113.7", testThreshold, testLockFor)
		if err != nil {
			t.Fatalf("Fail returned error: %v", err)
		}
		if state.Failures != i {
			t.Fatalf("expected %d failures, got %d", i, state.Failures)
		}
		if !state.LockedUntil.IsZero() {
			t.Fatalf("expected no lockout below threshold, got %v", state.LockedUntil)
		}
	}
}

func TestLoginAttemptStore_LockoutEngagesAtThreshold(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	store := NewLoginAttemptStore().WithClock(func() time.Time { return now })
	ctx := context.Background()

	var state, err = store.State(ctx, "ip:203.0.113.7")
	if err != nil || state.Failures != 0 {
		t.Fatalf("expected clean slate, got %+v err=%v", state, err)
	}

	for i := 0; i < testThreshold; i++ {
		state, err = store.Fail(ctx, "ip:203.0.113.7", testThreshold, testLockFor)
		if err != nil {
			t.Fatalf("Fail returned error: %v", err)
		}
	}

	if state.Failures != testThreshold {
		t.Fatalf("expected %d failures, got %d", testThreshold, state.Failures)
	}
	if want := now.Add(testLockFor); !state.LockedUntil.Equal(want) {
		t.Fatalf("expected lockout until %v, got %v", want, state.LockedUntil)
	}

	// Attempts during an active lockout do not inflate the counter.
	state, err = store.Fail(ctx, "ip:203.0.113.7", testThreshold, testLockFor)
	if err != nil {
		t.Fatalf("Fail returned error: %v", err)
	}
	if state.Failures != testThreshold {
		t.Fatalf("expected frozen counter %d, got %d", testThreshold, state.Failures)
	}
	if want := now.Add(testLockFor); !state.LockedUntil.Equal(want) {
		t.Fatalf("expected lockout window unchanged, got %v", state.LockedUntil)
	}
}

func TestLoginAttemptStore_LockoutElapsesAndResets(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	store := NewLoginAttemptStore().WithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < testThreshold; i++ {
		if _, err := store.Fail(ctx, "ip:203.0.113.7", testThreshold, testLockFor); err != nil {
			t.Fatalf("Fail returned error: %v", err)
		}
	}

	now = now.Add(testLockFor + time.Second)

	state, err := store.State(ctx, "ip:203.0.113.7")
	if err != nil {
		t.Fatalf("State returned error: %v", err)
	}
	if state.Failures != 0 || !state.LockedUntil.IsZero() {
		t.Fatalf("expected elapsed lockout to read as clean slate, got %+v", state)
	}

	state, err = store.Fail(ctx, "ip:203.0.113.7", testThreshold, testLockFor)
	if err != nil {
		t.Fatalf("Fail returned error: %v", err)
	}
	if state.Failures != 1 {
		t.Fatalf("expected counter to restart at 1, got %d", state.Failures)
	}
}

func TestLoginAttemptStore_Clear(t *testing.T) {
	store := NewLoginAttemptStore()
	ctx := context.Background()

	if _, err := store.Fail(ctx, "ip:203.0.113.7", testThreshold, testLockFor); err != nil {
		t.Fatalf("Fail returned error: %v", err)
	}
	if err := store.Clear(ctx, "ip:203.0.113.7"); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}

	state, err := store.State(ctx, "ip:203.0.113.7")
	if err != nil {
		t.Fatalf("State returned error: %v", err)
	}
	if state.Failures != 0 {
		t.Fatalf("expected cleared counter, got %d", state.Failures)
	}
}

func TestLoginAttemptStore_IsolatesIdentifiers(t *testing.T) {
	store := NewLoginAttemptStore()
	ctx := context.Background()

	if _, err := store.Fail(ctx, "ip:203.0.113.7", testThreshold, testLockFor); err != nil {
		t.Fatalf("Fail returned error: %v", err)
	}

	state, err := store.State(ctx, "ip:198.51.100.4")
	if err != nil {
		t.Fatalf("State returned error: %v", err)
	}
	if state.Failures != 0 {
		t.Fatalf("expected independent counters, got %d", state.Failures)
	}
}

func TestLoginAttemptStore_ConcurrentFailures(t *testing.T) {
	store := NewLoginAttemptStore()
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := store.Fail(ctx, "ip:203.0.113.7", 1000, testLockFor); err != nil {
				t.Errorf("Fail returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	state, err := store.State(ctx, "ip:203.0.113.7")
	if err != nil {
		t.Fatalf("State returned error: %v", err)
	}
	if state.Failures != workers {
		t.Fatalf("expected %d failures, got %d", workers, state.Failures)
	}
}
