package degraded

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

var (
	recoveryChan   chan struct{}
	recoveryChanMu sync.Mutex
)

// NotifyDegraded signals that upstream telemetry is degraded. Triggers
// recovery if not already running. Safe to call from handlers; non-blocking.
func NotifyDegraded() {
	recoveryChanMu.Lock()
	ch := recoveryChan
	recoveryChanMu.Unlock()
	if ch != nil {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// ValidateFunc probes the upstream (token validation against the review
// source). Returns nil once the upstream answers again.
type ValidateFunc func(ctx context.Context) error

// StartRecoveryListener starts a goroutine that runs recovery when
// NotifyDegraded is called. Call from main with the app context.
func StartRecoveryListener(ctx context.Context, validate ValidateFunc, initial, max time.Duration, onExhausted func()) {
	ch := make(chan struct{}, 1)
	recoveryChanMu.Lock()
	recoveryChan = ch
	recoveryChanMu.Unlock()

	var running atomic.Bool
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				if running.Swap(true) {
					continue
				}
				go func() {
					defer running.Store(false)
					RunRecovery(ctx, validate, initial, max, onExhausted)
				}()
			}
		}
	}()
}

// RunRecovery runs the Fibonacci backoff recovery probe. Calls validate at
// each interval; delays grow 1, 2, 3, 5, 8, 13... units from initial, capped
// at max. Stops and resets the degraded tracker when validate succeeds.
// After the final attempt, if validate still fails, calls onExhausted.
func RunRecovery(ctx context.Context, validate ValidateFunc, initial, max time.Duration, onExhausted func()) {
	if initial <= 0 || max < initial {
		return
	}
	delays := fibDelays(initial, max)
	timeout := 10 * time.Second
	for i, d := range delays {
		select {
		case <-ctx.Done():
			return
		case <-time.After(d):
		}
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		err := validate(attemptCtx)
		cancel()
		if err == nil {
			Reset()
			return
		}
		if i == len(delays)-1 {
			onExhausted()
			return
		}
	}
}

func fibDelays(initial, max time.Duration) []time.Duration {
	a, b := 1.0, 2.0
	var out []time.Duration
	for {
		d := time.Duration(a * float64(initial))
		if d > max {
			break
		}
		out = append(out, d)
		a, b = b, a+b
	}
	return out
}
