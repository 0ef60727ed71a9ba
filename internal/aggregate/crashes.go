package aggregate

import (
	"sort"

	"github.com/kjstillabower/release-health-service/internal/models"
)

// Crashes sums crash event counts grouped by app version. The upstream query
// is already scoped to the current window, so no local time filtering
// happens here. byVersion is ordered by count descending; ties keep
// first-seen order.
func Crashes(events []models.RawCrashEvent) models.AggregatedCrashMetric {
	counts := make(map[string]int)
	order := make([]string, 0, len(events))

	total := 0
	for _, e := range events {
		if e.EventCount < 0 {
			continue
		}
		if _, seen := counts[e.AppVersion]; !seen {
			order = append(order, e.AppVersion)
		}
		counts[e.AppVersion] += e.EventCount
		total += e.EventCount
	}

	byVersion := make([]models.VersionCount, 0, len(order))
	for _, version := range order {
		byVersion = append(byVersion, models.VersionCount{Version: version, Count: counts[version]})
	}
	sort.SliceStable(byVersion, func(i, j int) bool {
		return byVersion[i].Count > byVersion[j].Count
	})

	return models.AggregatedCrashMetric{
		TotalCount: total,
		ByVersion:  byVersion,
	}
}
