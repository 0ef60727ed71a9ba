package status

import (
	"testing"

	"github.com/kjstillabower/release-health-service/internal/upstream"
)

func TestClassify_ReviewBoundaries(t *testing.T) {
	tests := []struct {
		count int
		want  Level
	}{
		{0, LevelNormal},
		{4, LevelNormal},
		{5, LevelWarning},
		{6, LevelWarning},
		{7, LevelCritical},
		{100, LevelCritical},
	}

	for _, tc := range tests {
		got := Classify(KindReview, upstream.Ok(tc.count))
		if got.Level != tc.want {
			t.Errorf("Classify(review, %d).Level = %q, want %q", tc.count, got.Level, tc.want)
		}
	}
}

func TestClassify_CrashBoundaries(t *testing.T) {
	tests := []struct {
		count int
		want  Level
	}{
		{0, LevelNormal},
		{1000, LevelNormal},
		{1001, LevelWarning},
		{1500, LevelWarning},
		{1501, LevelCritical},
	}

	for _, tc := range tests {
		got := Classify(KindCrash, upstream.Ok(tc.count))
		if got.Level != tc.want {
			t.Errorf("Classify(crash, %d).Level = %q, want %q", tc.count, got.Level, tc.want)
		}
	}
}

func TestClassify_FailedFetchIsWarning(t *testing.T) {
	// A failed fetch reports degraded service, never a silent zero.
	for _, kind := range []Kind{KindReview, KindCrash} {
		got := Classify(kind, upstream.Err[int]("connection refused"))
		if got.Level != LevelWarning {
			t.Errorf("Classify(%s, Err).Level = %q, want warning", kind, got.Level)
		}
		if got.Label != LabelLookupFailed {
			t.Errorf("Classify(%s, Err).Label = %q, want %q", kind, got.Label, LabelLookupFailed)
		}
	}
}

func TestClassify_LabelsPerLevel(t *testing.T) {
	if got := Classify(KindReview, upstream.Ok(2)); got.Label == "" {
		t.Error("normal review classification has empty label")
	}
	if got := Classify(KindCrash, upstream.Ok(2000)); got.Label == "" {
		t.Error("critical crash classification has empty label")
	}
}
