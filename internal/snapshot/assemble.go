package snapshot

import (
	"encoding/json"
	"time"

	"github.com/kjstillabower/release-health-service/internal/models"
	"github.com/kjstillabower/release-health-service/internal/status"
	"github.com/kjstillabower/release-health-service/internal/upstream"
)

// Inputs carries the three upstream outcomes plus their raw payloads into
// assembly. Raw payloads ride along for caller-side debugging only.
type Inputs struct {
	Reviews    upstream.Result[models.AggregatedReviewMetric]
	Crashes    upstream.Result[models.AggregatedCrashMetric]
	Vitals     upstream.Result[[]json.RawMessage]
	ReviewsRaw json.RawMessage
	CrashesRaw json.RawMessage
	VitalsRaw  json.RawMessage
}

// Assemble composes the outward dashboard snapshot. It is a total function:
// any combination of Ok/Err inputs yields a complete, well-typed snapshot
// with zero-value aggregates substituted for failed sources. Both sources
// failing still produces a snapshot with both metrics at warning.
func Assemble(in Inputs, now time.Time) models.DashboardSnapshot {
	reviewCount := upstream.Ok(in.Reviews.Value().BadCount)
	if in.Reviews.Failed() {
		reviewCount = upstream.Err[int](in.Reviews.Reason())
	}
	reviewStatus := status.Classify(status.KindReview, reviewCount)

	crashCount := upstream.Ok(in.Crashes.Value().TotalCount)
	if in.Crashes.Failed() {
		crashCount = upstream.Err[int](in.Crashes.Reason())
	}
	crashStatus := status.Classify(status.KindCrash, crashCount)

	reviewMetric := in.Reviews.Value()
	if reviewMetric.Texts == nil {
		reviewMetric.Texts = []models.ReviewText{}
	}
	crashMetric := in.Crashes.Value()
	if crashMetric.ByVersion == nil {
		crashMetric.ByVersion = []models.VersionCount{}
	}
	vitals := in.Vitals.Value()
	if vitals == nil {
		vitals = []json.RawMessage{}
	}

	return models.DashboardSnapshot{
		Reviews: models.ReviewsPanel{
			Count:           reviewMetric.BadCount,
			Status:          reviewStatus.Label,
			Level:           string(reviewStatus.Level),
			Average:         reviewMetric.CurrentAverage,
			PreviousAverage: reviewMetric.PreviousAverage,
			Texts:           reviewMetric.Texts,
		},
		Crashes: models.CrashesPanel{
			Count:    crashMetric.TotalCount,
			Status:   crashStatus.Label,
			Level:    string(crashStatus.Level),
			Versions: crashMetric.ByVersion,
			Vitals:   vitals,
		},
		UpdatedAt: now.UTC().Format(time.RFC3339),
		RawData: models.RawData{
			ReviewSource: diagnostic(in.ReviewsRaw, in.Reviews.Reason()),
			CrashSource:  diagnostic(in.CrashesRaw, in.Crashes.Reason()),
			VitalsSource: diagnostic(in.VitalsRaw, in.Vitals.Reason()),
		},
	}
}

// diagnostic prefers the raw payload; a failed source contributes its reason
// string instead.
func diagnostic(payload json.RawMessage, reason string) models.SourceDiagnostic {
	if reason != "" {
		return models.SourceDiagnostic{Error: reason}
	}
	return models.SourceDiagnostic{Payload: payload}
}
