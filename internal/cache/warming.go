package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/release-health-service/internal/models"
	"github.com/kjstillabower/release-health-service/internal/observability"
)

// SnapshotBuilder is implemented by the service layer. Used by Warmer to
// avoid a circular dependency on the service package.
type SnapshotBuilder interface {
	BuildDefault(ctx context.Context) (models.DashboardSnapshot, error)
}

// Warmer prefetches the default-parameter snapshot so the first dashboard
// load after startup (or after TTL expiry) does not pay upstream latency.
type Warmer struct {
	builder SnapshotBuilder
	logger  *zap.Logger
}

// NewWarmer creates a Warmer that uses the given builder and logger.
func NewWarmer(builder SnapshotBuilder, logger *zap.Logger) *Warmer {
	return &Warmer{builder: builder, logger: logger}
}

// Warm builds the default snapshot once, populating the cache via the builder.
func (w *Warmer) Warm(ctx context.Context) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	if w.logger != nil {
		w.logger.Info("warming snapshot cache")
	}

	_, err := w.builder.BuildDefault(ctx)

	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	if w.logger != nil {
		w.logger.Info("snapshot cache warming complete", zap.Bool("ok", err == nil), zap.Float64("duration_seconds", duration))
	}
	if err != nil {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("snapshot warming: %w", err)
	}
	return nil
}

// WarmPeriodic runs an initial Warm, then refreshes at the given interval
// until ctx is done.
func (w *Warmer) WarmPeriodic(ctx context.Context, interval time.Duration) error {
	if err := w.Warm(ctx); err != nil && w.logger != nil {
		w.logger.Warn("initial snapshot warm failed", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Warm(ctx); err != nil && w.logger != nil {
				w.logger.Warn("periodic snapshot warm failed", zap.Error(err))
			}
		}
	}
}
