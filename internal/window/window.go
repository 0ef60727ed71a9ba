package window

import (
	"errors"
	"fmt"
	"time"

	"github.com/kjstillabower/release-health-service/internal/models"
)

// Compare modes for the previous window.
const (
	// CompareDay compares against the equally-sized period immediately
	// preceding the current window.
	CompareDay = "day"
	// CompareWeek compares against the 7-day period ending where the
	// current window starts, independent of rangeDays.
	CompareWeek = "week"
)

// ErrInvalidRange is returned when rangeDays is zero or negative.
var ErrInvalidRange = errors.New("rangeDays must be positive")

// ErrInvalidCompareMode is returned for an unknown compare mode.
var ErrInvalidCompareMode = errors.New("unknown compare mode")

// Compute derives the current and previous windows from now. The current
// window is the rangeDays-long period ending at now; the previous window ends
// exactly where the current one starts, so the two never overlap. Computed
// fresh per call; no state is retained between calls.
func Compute(now time.Time, rangeDays int, compareMode string) (models.Windows, error) {
	if rangeDays <= 0 {
		return models.Windows{}, fmt.Errorf("%w: got %d", ErrInvalidRange, rangeDays)
	}

	current := models.TimeWindow{
		Start: now.Add(-time.Duration(rangeDays) * 24 * time.Hour),
		End:   now,
	}

	var span time.Duration
	switch compareMode {
	case CompareDay:
		span = time.Duration(rangeDays) * 24 * time.Hour
	case CompareWeek:
		span = 7 * 24 * time.Hour
	default:
		return models.Windows{}, fmt.Errorf("%w: %q", ErrInvalidCompareMode, compareMode)
	}

	previous := models.TimeWindow{
		Start: current.Start.Add(-span),
		End:   current.Start,
	}

	return models.Windows{Current: current, Previous: previous}, nil
}
