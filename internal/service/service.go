package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/release-health-service/internal/aggregate"
	"github.com/kjstillabower/release-health-service/internal/cache"
	"github.com/kjstillabower/release-health-service/internal/degraded"
	"github.com/kjstillabower/release-health-service/internal/models"
	"github.com/kjstillabower/release-health-service/internal/observability"
	"github.com/kjstillabower/release-health-service/internal/snapshot"
	"github.com/kjstillabower/release-health-service/internal/upstream"
	"github.com/kjstillabower/release-health-service/internal/window"
)

// Params are the explicit per-request inputs to a snapshot build. The engine
// never reads process environment; everything it needs arrives here or via
// the constructor.
type Params struct {
	RangeDays   int
	CompareMode string
}

// DefaultParams returns the dashboard defaults: a 7-day window compared to
// the week before.
func DefaultParams() Params {
	return Params{RangeDays: 7, CompareMode: window.CompareWeek}
}

// Targets identifies the monitored application at each upstream.
type Targets struct {
	PackageName     string
	PropertyID      string
	ReviewFetchSize int
	VitalsPageSize  int
}

// SnapshotService builds dashboard snapshots: it fetches the three upstream
// sources concurrently, aggregates, classifies, and assembles. Snapshots may
// be served from a short-TTL cache; cache failures degrade to a direct
// build, never to a request failure. No mutable state is shared between
// requests.
type SnapshotService struct {
	reviews   upstream.ReviewSource
	crashes   upstream.CrashEventSource
	vitals    upstream.VitalsSource
	cache     cache.Cache
	ttl       time.Duration
	targets   Targets
	coalescer *requestCoalescer
	now       func() time.Time
}

// NewSnapshotService creates a SnapshotService. ttl is the snapshot cache
// expiration; coalesceTimeout enables request coalescing when positive.
func NewSnapshotService(reviews upstream.ReviewSource, crashes upstream.CrashEventSource, vitals upstream.VitalsSource, c cache.Cache, ttl time.Duration, targets Targets, coalesceTimeout time.Duration) *SnapshotService {
	var coalescer *requestCoalescer
	if coalesceTimeout > 0 {
		coalescer = newRequestCoalescer(coalesceTimeout)
	}
	return &SnapshotService{
		reviews:   reviews,
		crashes:   crashes,
		vitals:    vitals,
		cache:     c,
		ttl:       ttl,
		targets:   targets,
		coalescer: coalescer,
		now:       time.Now,
	}
}

// loggerFromContext extracts a zap.Logger from request context if present.
// Returns nil if logger is not found or context is invalid.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// BuildDefault builds a snapshot with DefaultParams. Satisfies
// cache.SnapshotBuilder for cache warming.
func (s *SnapshotService) BuildDefault(ctx context.Context) (models.DashboardSnapshot, error) {
	return s.Build(ctx, DefaultParams())
}

// Build produces one dashboard snapshot. The only fatal error is an invalid
// range or compare mode, surfaced before any fetch begins; upstream failures
// are folded into the snapshot as warning-level classifications.
func (s *SnapshotService) Build(ctx context.Context, params Params) (models.DashboardSnapshot, error) {
	nowTime := s.now().UTC()
	windows, err := window.Compute(nowTime, params.RangeDays, params.CompareMode)
	if err != nil {
		observability.SnapshotBuildsTotal.WithLabelValues("invalid_params").Inc()
		return models.DashboardSnapshot{}, err
	}

	logger := loggerFromContext(ctx)
	key := fmt.Sprintf("%d:%s", params.RangeDays, params.CompareMode)

	if s.cache != nil {
		cached, ok, cacheErr := s.cache.Get(ctx, key)
		if cacheErr != nil {
			observability.CacheErrorsTotal.WithLabelValues("get").Inc()
		} else if ok {
			observability.CacheHitsTotal.Inc()
			if logger != nil {
				logger.Debug("snapshot cache hit", zap.String("key", key))
			}
			return cached, nil
		}
	}

	var snap models.DashboardSnapshot
	if s.coalescer != nil {
		snap, err = s.coalescer.GetOrDo(ctx, key, func() (models.DashboardSnapshot, error) {
			return s.buildSnapshot(ctx, windows, nowTime), nil
		})
		if err != nil {
			// Coalesce wait timed out; build directly rather than fail the request.
			snap = s.buildSnapshot(ctx, windows, nowTime)
		}
	} else {
		snap = s.buildSnapshot(ctx, windows, nowTime)
	}

	if s.cache != nil {
		if setErr := s.cache.Set(ctx, key, snap, s.ttl); setErr != nil {
			observability.CacheErrorsTotal.WithLabelValues("set").Inc()
			if logger != nil {
				logger.Warn("snapshot cache set failed", zap.String("key", key), zap.Error(setErr))
			}
		}
	}

	observability.SnapshotBuildsTotal.WithLabelValues("ok").Inc()
	observability.RecordMetricLevel("review", snap.Reviews.Level)
	observability.RecordMetricLevel("crash", snap.Crashes.Level)
	if logger != nil {
		logger.Debug("snapshot built",
			zap.Int("range_days", params.RangeDays),
			zap.String("compare_mode", params.CompareMode),
			zap.String("review_level", snap.Reviews.Level),
			zap.String("crash_level", snap.Crashes.Level))
	}
	return snap, nil
}

// reviewFetch is the review goroutine's channel payload.
type reviewFetch struct {
	metric upstream.Result[models.AggregatedReviewMetric]
	raw    json.RawMessage
}

type crashFetch struct {
	metric upstream.Result[models.AggregatedCrashMetric]
	raw    json.RawMessage
}

type vitalsFetch struct {
	issues upstream.Result[[]json.RawMessage]
	raw    json.RawMessage
}

// buildSnapshot issues the three upstream fetches concurrently, one attempt
// each. Each call boundary converts any fault into an Err result so one
// source's failure is never attributed to another. Cancelling ctx cancels
// all fetches together.
func (s *SnapshotService) buildSnapshot(ctx context.Context, windows models.Windows, nowTime time.Time) models.DashboardSnapshot {
	reviewCh := make(chan reviewFetch, 1)
	crashCh := make(chan crashFetch, 1)
	vitalsCh := make(chan vitalsFetch, 1)

	go func() {
		records, raw, err := s.reviews.FetchRecentReviews(ctx, s.targets.PackageName, s.targets.ReviewFetchSize)
		if err != nil {
			degraded.RecordError()
			reviewCh <- reviewFetch{metric: upstream.Err[models.AggregatedReviewMetric](err.Error())}
			return
		}
		degraded.RecordSuccess()
		reviewCh <- reviewFetch{metric: upstream.Ok(aggregate.Reviews(records, windows)), raw: raw}
	}()

	go func() {
		events, raw, err := s.crashes.FetchEventsByVersion(ctx, s.targets.PropertyID, windows.Current.Start, windows.Current.End)
		if err != nil {
			degraded.RecordError()
			crashCh <- crashFetch{metric: upstream.Err[models.AggregatedCrashMetric](err.Error())}
			return
		}
		degraded.RecordSuccess()
		crashCh <- crashFetch{metric: upstream.Ok(aggregate.Crashes(events)), raw: raw}
	}()

	go func() {
		issues, raw, err := s.vitals.FetchTopIssues(ctx, s.targets.PackageName, s.targets.VitalsPageSize)
		if err != nil {
			vitalsCh <- vitalsFetch{issues: upstream.Err[[]json.RawMessage](err.Error())}
			return
		}
		vitalsCh <- vitalsFetch{issues: upstream.Ok(issues), raw: raw}
	}()

	reviews := <-reviewCh
	crashes := <-crashCh
	vitals := <-vitalsCh

	return snapshot.Assemble(snapshot.Inputs{
		Reviews:    reviews.metric,
		Crashes:    crashes.metric,
		Vitals:     vitals.issues,
		ReviewsRaw: reviews.raw,
		CrashesRaw: crashes.raw,
		VitalsRaw:  vitals.raw,
	}, nowTime)
}
