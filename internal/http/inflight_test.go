package http

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestInFlightTracker_Counting(t *testing.T) {
	tracker := &InFlightTracker{}

	tracker.Increment()
	tracker.Increment()
	if got := tracker.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
	tracker.Decrement()
	if got := tracker.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}

func TestInFlightTracker_WaitForZero(t *testing.T) {
	tracker := &InFlightTracker{}
	tracker.Increment()

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		done <- tracker.WaitForZero(ctx, 5*time.Millisecond)
	}()

	time.Sleep(20 * time.Millisecond)
	tracker.Decrement()

	if err := <-done; err != nil {
		t.Errorf("WaitForZero: %v", err)
	}
}

func TestInFlightTracker_WaitForZeroTimeout(t *testing.T) {
	tracker := &InFlightTracker{}
	tracker.Increment()
	defer tracker.Decrement()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := tracker.WaitForZero(ctx, 5*time.Millisecond); err == nil {
		t.Error("WaitForZero returned nil with a request still in flight")
	}
}

func TestInFlightTracker_ConcurrentUpdates(t *testing.T) {
	tracker := &InFlightTracker{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Increment()
			tracker.Decrement()
		}()
	}
	wg.Wait()

	if got := tracker.Count(); got != 0 {
		t.Errorf("Count() = %d, want 0 after balanced updates", got)
	}
}
