package service

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/release-health-service/internal/models"
)

// inFlightBuild tracks a single snapshot build that multiple callers may wait for.
type inFlightBuild struct {
	mu      sync.Mutex
	result  models.DashboardSnapshot
	err     error
	done    bool
	waiters []chan struct{} // Channels to notify waiters when result is ready
}

// requestCoalescer collapses concurrent snapshot builds for the same
// parameter key into one set of upstream fetches.
type requestCoalescer struct {
	mu       sync.Mutex
	inFlight map[string]*inFlightBuild
	timeout  time.Duration
}

// newRequestCoalescer creates a new requestCoalescer with the specified timeout.
func newRequestCoalescer(timeout time.Duration) *requestCoalescer {
	return &requestCoalescer{
		inFlight: make(map[string]*inFlightBuild),
		timeout:  timeout,
	}
}

// GetOrDo checks if a build for key is already in-flight. If yes, waits for
// its result. If no, executes fn and registers the build. Respects context
// cancellation and timeout to prevent indefinite blocking.
func (rc *requestCoalescer) GetOrDo(ctx context.Context, key string, fn func() (models.DashboardSnapshot, error)) (models.DashboardSnapshot, error) {
	rc.mu.Lock()
	req, exists := rc.inFlight[key]
	if exists {
		// Build in-flight - wait for it
		notify := make(chan struct{})
		req.mu.Lock()
		if req.done {
			result := req.result
			err := req.err
			req.mu.Unlock()
			rc.mu.Unlock()
			if err != nil {
				return models.DashboardSnapshot{}, err
			}
			return result, nil
		}
		req.waiters = append(req.waiters, notify)
		req.mu.Unlock()
		rc.mu.Unlock()

		waitCtx, cancel := context.WithTimeout(ctx, rc.timeout)
		defer cancel()
		select {
		case <-notify:
			req.mu.Lock()
			result := req.result
			err := req.err
			req.mu.Unlock()
			if err != nil {
				return models.DashboardSnapshot{}, err
			}
			return result, nil
		case <-waitCtx.Done():
			return models.DashboardSnapshot{}, waitCtx.Err()
		}
	}

	// No existing build - create one
	req = &inFlightBuild{
		waiters: make([]chan struct{}, 0),
	}
	rc.inFlight[key] = req
	rc.mu.Unlock()

	go func() {
		result, err := fn()

		req.mu.Lock()
		req.result = result
		req.err = err
		req.done = true
		waiters := req.waiters
		req.waiters = nil
		req.mu.Unlock()

		for _, notify := range waiters {
			close(notify)
		}

		rc.cleanup(key)
	}()

	waitCtx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()
	notify := make(chan struct{})
	req.mu.Lock()
	if req.done {
		result := req.result
		err := req.err
		req.mu.Unlock()
		if err != nil {
			return models.DashboardSnapshot{}, err
		}
		return result, nil
	}
	req.waiters = append(req.waiters, notify)
	req.mu.Unlock()

	select {
	case <-notify:
		req.mu.Lock()
		result := req.result
		err := req.err
		req.mu.Unlock()
		if err != nil {
			return models.DashboardSnapshot{}, err
		}
		return result, nil
	case <-waitCtx.Done():
		return models.DashboardSnapshot{}, waitCtx.Err()
	}
}

// cleanup removes the in-flight build for key. Must be called after the build completes.
func (rc *requestCoalescer) cleanup(key string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.inFlight, key)
}
