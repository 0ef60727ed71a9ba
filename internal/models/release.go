package models

import (
	"encoding/json"
	"time"
)

// RawReview is one app-store review as returned by the review source.
// Rating 0 or TimestampSeconds 0 mean the upstream record was missing the
// field; such records are excluded from aggregation, never counted as zero.
type RawReview struct {
	ID               string `json:"id"`
	Rating           int    `json:"rating"`
	Text             string `json:"text"`
	TimestampSeconds int64  `json:"timestampSeconds"`
	Author           string `json:"author"`
}

// RawCrashEvent is one crash-count row per app version, already scoped to the
// current reporting window by the upstream query.
type RawCrashEvent struct {
	AppVersion string `json:"appVersion"`
	EventCount int    `json:"eventCount"`
}

// TimeWindow is an inclusive time range. Current and previous windows are
// disjoint by construction: previous.End == current.Start.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window (start exclusive,
// end inclusive, so adjacent windows never both claim a boundary instant).
func (w TimeWindow) Contains(t time.Time) bool {
	return t.After(w.Start) && !t.After(w.End)
}

// Windows pairs the current reporting window with its comparison window.
type Windows struct {
	Current  TimeWindow `json:"current"`
	Previous TimeWindow `json:"previous"`
}

// ReviewText is one displayable review entry within the current window.
type ReviewText struct {
	ID     string    `json:"id"`
	Rating int       `json:"rating"`
	Text   string    `json:"text"`
	Date   time.Time `json:"date"`
	Author string    `json:"author"`
}

// AggregatedReviewMetric holds per-window review aggregates.
type AggregatedReviewMetric struct {
	BadCount        int          `json:"badCount"`
	CurrentAverage  float64      `json:"currentAverage"`
	PreviousAverage float64      `json:"previousAverage"`
	Texts           []ReviewText `json:"texts"`
}

// VersionCount is a crash-count bucket for one app version.
type VersionCount struct {
	Version string `json:"version"`
	Count   int    `json:"count"`
}

// AggregatedCrashMetric holds crash aggregates for the current window.
type AggregatedCrashMetric struct {
	TotalCount int            `json:"totalCount"`
	ByVersion  []VersionCount `json:"byVersion"`
}

// SourceDiagnostic carries the raw upstream payload (or the failure reason)
// for caller-side debugging. Exactly one of the fields is set.
type SourceDiagnostic struct {
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// RawData holds per-source diagnostics passed through the snapshot verbatim.
type RawData struct {
	ReviewSource SourceDiagnostic `json:"reviewSource"`
	CrashSource  SourceDiagnostic `json:"crashSource"`
	VitalsSource SourceDiagnostic `json:"vitalsSource"`
}

// ReviewsPanel is the classified review metric in the outward snapshot.
type ReviewsPanel struct {
	Count           int          `json:"count"`
	Status          string       `json:"status"`
	Level           string       `json:"level"`
	Average         float64      `json:"average"`
	PreviousAverage float64      `json:"previousAverage"`
	Texts           []ReviewText `json:"texts"`
}

// CrashesPanel is the classified crash metric in the outward snapshot.
type CrashesPanel struct {
	Count    int               `json:"count"`
	Status   string            `json:"status"`
	Level    string            `json:"level"`
	Versions []VersionCount    `json:"versions"`
	Vitals   []json.RawMessage `json:"vitals"`
}

// DashboardSnapshot is the single aggregated-and-classified result returned
// for one dashboard request.
type DashboardSnapshot struct {
	Reviews   ReviewsPanel `json:"reviews"`
	Crashes   CrashesPanel `json:"crashes"`
	UpdatedAt string       `json:"updatedAt"`
	RawData   RawData      `json:"rawData"`
}
