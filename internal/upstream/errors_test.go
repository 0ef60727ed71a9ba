package upstream

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ""},
		{"deadline exceeded", context.DeadlineExceeded, ErrorCategoryTimeout},
		{"canceled", context.Canceled, ErrorCategoryTimeout},
		{"invalid token", ErrInvalidToken, ErrorCategoryInvalidToken},
		{"wrapped invalid token", fmt.Errorf("probe: %w", ErrInvalidToken), ErrorCategoryInvalidToken},
		{"not found", ErrNotFound, ErrorCategoryNotFound},
		{"rate limited", ErrRateLimited, ErrorCategoryRateLimited},
		{"upstream failure", ErrUpstreamFailure, ErrorCategoryUpstream5xx},
		{"timeout string", errors.New("request timeout"), ErrorCategoryTimeout},
		{"connection string", errors.New("connection refused"), ErrorCategoryNetwork},
		{"parse string", errors.New("parse response: unexpected EOF"), ErrorCategoryParsing},
		{"unknown", errors.New("something odd"), ErrorCategoryUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CategorizeError(tc.err); got != tc.want {
				t.Errorf("CategorizeError(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}
