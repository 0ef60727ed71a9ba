package validation

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kjstillabower/release-health-service/internal/window"
)

// Defaults applied when the query parameter is absent.
const (
	DefaultRangeDays   = 7
	DefaultCompareMode = window.CompareWeek
)

// maxRangeDays bounds the window so upstream report date ranges stay sane.
const maxRangeDays = 90

// ErrRangeNotANumber is returned when rangeDays is not an integer.
var ErrRangeNotANumber = errors.New("rangeDays must be an integer")

// ErrRangeNotPositive is returned when rangeDays is zero or negative.
var ErrRangeNotPositive = errors.New("rangeDays must be positive")

// ErrRangeTooLarge is returned when rangeDays exceeds the maximum.
var ErrRangeTooLarge = errors.New("rangeDays too large")

// ErrUnknownCompareMode is returned for a compare mode other than day or week.
var ErrUnknownCompareMode = errors.New("compare must be day or week")

// ValidateRangeDays parses the rangeDays query parameter. Empty input yields
// the default. Returns an error suitable for 400 INVALID_RANGE responses.
func ValidateRangeDays(input string) (int, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return DefaultRangeDays, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrRangeNotANumber
	}
	if n <= 0 {
		return 0, ErrRangeNotPositive
	}
	if n > maxRangeDays {
		return 0, ErrRangeTooLarge
	}
	return n, nil
}

// ValidateCompareMode parses the compare query parameter. Empty input yields
// the default. Returns an error suitable for 400 INVALID_COMPARE_MODE responses.
func ValidateCompareMode(input string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return DefaultCompareMode, nil
	}
	switch s {
	case window.CompareDay, window.CompareWeek:
		return s, nil
	}
	return "", ErrUnknownCompareMode
}
