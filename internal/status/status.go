package status

import (
	"github.com/kjstillabower/release-health-service/internal/upstream"
)

// Level is the classified severity of a metric.
type Level string

const (
	LevelNormal   Level = "normal"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Kind selects the threshold table used for classification.
type Kind string

const (
	KindReview Kind = "review"
	KindCrash  Kind = "crash"
)

// Fixed policy thresholds. Deliberately constants, not configuration.
const (
	reviewCriticalAbove = 6
	reviewWarningFrom   = 5

	crashCriticalAbove = 1500
	crashWarningFrom   = 1001
)

// LabelLookupFailed is reported whenever the upstream fetch for a metric
// failed. A failed fetch is degraded service, never a silent zero.
const LabelLookupFailed = "lookup failed"

// Classified is the status derived for one metric. Recomputed per request,
// never stored.
type Classified struct {
	Level Level
	Label string
}

// Classify maps a fetched count (badCount for reviews, totalCount for
// crashes) to a status level and label. An Err result always classifies as
// warning/"lookup failed" regardless of any previously known value.
func Classify(kind Kind, count upstream.Result[int]) Classified {
	if count.Failed() {
		return Classified{Level: LevelWarning, Label: LabelLookupFailed}
	}

	n := count.Value()
	switch kind {
	case KindReview:
		switch {
		case n > reviewCriticalAbove:
			return Classified{Level: LevelCritical, Label: "negative review spike"}
		case n >= reviewWarningFrom:
			return Classified{Level: LevelWarning, Label: "elevated negative reviews"}
		default:
			return Classified{Level: LevelNormal, Label: "all quiet"}
		}
	case KindCrash:
		switch {
		case n > crashCriticalAbove:
			return Classified{Level: LevelCritical, Label: "crash spike"}
		case n >= crashWarningFrom:
			return Classified{Level: LevelWarning, Label: "elevated crash volume"}
		default:
			return Classified{Level: LevelNormal, Label: "stable"}
		}
	default:
		return Classified{Level: LevelWarning, Label: "unknown metric kind"}
	}
}
