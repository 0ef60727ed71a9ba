package aggregate

import (
	"sort"
	"time"

	"github.com/kjstillabower/release-health-service/internal/models"
)

// defaultAuthor substitutes for reviews whose upstream record omits the
// author name.
const defaultAuthor = "A Google user"

// badRatingMax is the highest rating still counted as a bad review.
const badRatingMax = 2

// Reviews partitions raw reviews into the current and previous windows and
// computes the per-window aggregates. Records with a missing rating or
// timestamp are excluded from both windows entirely; they never contribute a
// zero to an average. Zero reviews in the current window is a valid result,
// not an error.
func Reviews(reviews []models.RawReview, windows models.Windows) models.AggregatedReviewMetric {
	var currentRatings, previousRatings []int
	texts := make([]models.ReviewText, 0)

	for _, r := range reviews {
		if r.Rating < 1 || r.Rating > 5 || r.TimestampSeconds <= 0 {
			continue
		}
		at := time.Unix(r.TimestampSeconds, 0).UTC()

		switch {
		case windows.Current.Contains(at):
			currentRatings = append(currentRatings, r.Rating)
			if r.Text != "" {
				author := r.Author
				if author == "" {
					author = defaultAuthor
				}
				texts = append(texts, models.ReviewText{
					ID:     r.ID,
					Rating: r.Rating,
					Text:   r.Text,
					Date:   at,
					Author: author,
				})
			}
		case windows.Previous.Contains(at):
			previousRatings = append(previousRatings, r.Rating)
		}
	}

	badCount := 0
	for _, rating := range currentRatings {
		if rating <= badRatingMax {
			badCount++
		}
	}

	// Most recent first; stable so same-instant reviews keep fetch order.
	sort.SliceStable(texts, func(i, j int) bool {
		return texts[i].Date.After(texts[j].Date)
	})

	return models.AggregatedReviewMetric{
		BadCount:        badCount,
		CurrentAverage:  average(currentRatings),
		PreviousAverage: average(previousRatings),
		Texts:           texts,
	}
}

// average returns the mean rating, or 0 for an empty window.
func average(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return float64(sum) / float64(len(ratings))
}
