package degraded

import (
	"time"

	"github.com/kjstillabower/release-health-service/internal/traffic"
)

// RecordSuccess records a successful upstream telemetry fetch.
func RecordSuccess() {
	traffic.RecordSuccess()
}

// RecordError records a failed upstream telemetry fetch (network, auth, 5xx, parse).
func RecordError() {
	traffic.RecordError()
}

// ErrorRate returns (errorCount, totalCount) within the window. totalCount = successes + errors.
func ErrorRate(window time.Duration) (errors, total int) {
	return traffic.ErrorRate(window)
}

// Reset clears all recorded data. For tests only.
func Reset() {
	traffic.Reset()
}
