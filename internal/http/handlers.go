package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/release-health-service/internal/degraded"
	"github.com/kjstillabower/release-health-service/internal/idle"
	"github.com/kjstillabower/release-health-service/internal/lifecycle"
	"github.com/kjstillabower/release-health-service/internal/overload"
	"github.com/kjstillabower/release-health-service/internal/service"
	"github.com/kjstillabower/release-health-service/internal/status"
	"github.com/kjstillabower/release-health-service/internal/validation"
)

// TokenCheck probes upstream token validity. Used by the health handler and
// degraded recovery.
type TokenCheck func(ctx context.Context) error

// HealthConfig holds lifecycle thresholds for the health handler.
type HealthConfig struct {
	OverloadWindow         time.Duration
	OverloadThresholdPct   int
	RateLimitRPS           int
	RateLimitBurst         int // 0 when rate limiter disabled
	DegradedWindow         time.Duration
	DegradedErrorPct       int
	IdleWindow             time.Duration
	IdleThresholdReqPerMin int
	MinimumLifespan        time.Duration
	StartTime              time.Time
	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	snapshots        *service.SnapshotService
	tokenCheck       TokenCheck
	healthConfig     *HealthConfig
	logger           *zap.Logger
	rateLimiter      *rate.Limiter
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(
	snapshots *service.SnapshotService,
	tokenCheck TokenCheck,
	healthConfig *HealthConfig,
	logger *zap.Logger,
	rateLimiter *rate.Limiter,
) *Handler {
	return &Handler{
		snapshots:    snapshots,
		tokenCheck:   tokenCheck,
		healthConfig: healthConfig,
		logger:       logger,
		rateLimiter:  rateLimiter,
	}
}

// GetDashboard handles GET /dashboard?rangeDays=7&compare=week.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	rangeDays, err := validation.ValidateRangeDays(r.URL.Query().Get("rangeDays"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_RANGE", err.Error())
		return
	}
	compareMode, err := validation.ValidateCompareMode(r.URL.Query().Get("compare"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COMPARE_MODE", err.Error())
		return
	}

	idle.RecordRequest()
	snap, err := h.snapshots.Build(r.Context(), service.Params{RangeDays: rangeDays, CompareMode: compareMode})
	if err != nil {
		// Build only fails on invalid params; upstream faults fold into the snapshot.
		writeError(w, r, http.StatusBadRequest, "INVALID_RANGE", err.Error())
		return
	}

	if snap.Reviews.Status == status.LabelLookupFailed || snap.Crashes.Status == status.LabelLookupFailed {
		degraded.NotifyDegraded()
	}
	writeJSON(w, http.StatusOK, snap)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	if result.status == "degraded" {
		checks["telemetryUpstream"] = "unhealthy"
	} else {
		checks["telemetryUpstream"] = "healthy"
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "release-health-service",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// computeHealthStatus determines the current health status by evaluating
// conditions in priority order:
// shutting-down > token invalid > overloaded > idle > degraded > healthy.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.tokenCheck != nil {
		if err := h.tokenCheck(ctx); err != nil {
			return healthResult{"degraded", http.StatusServiceUnavailable, "token_invalid"}
		}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	threshold := float64(h.healthConfig.RateLimitRPS) * h.healthConfig.OverloadWindow.Seconds() * float64(h.healthConfig.OverloadThresholdPct) / 100
	if float64(overload.RequestCount(h.healthConfig.OverloadWindow)) > threshold {
		return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
	}
	if h.healthConfig.IdleWindow > 0 && h.healthConfig.MinimumLifespan > 0 && time.Since(h.healthConfig.StartTime) >= h.healthConfig.MinimumLifespan {
		if idle.RequestCount(h.healthConfig.IdleWindow) < h.healthConfig.IdleThresholdReqPerMin {
			return healthResult{"idle", http.StatusOK, "low_traffic"}
		}
	}
	if h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		errs, total := degraded.ErrorRate(h.healthConfig.DegradedWindow)
		if total > 0 {
			pct := float64(errs) * 100 / float64(total)
			if pct >= float64(h.healthConfig.DegradedErrorPct) {
				return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
			}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, statusCode, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}
