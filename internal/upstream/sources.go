package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kjstillabower/release-health-service/internal/models"
	"github.com/kjstillabower/release-health-service/internal/observability"
)

// ReviewSource fetches recent app-store reviews for a package. The raw
// response body is returned alongside the decoded records for snapshot
// diagnostics.
type ReviewSource interface {
	FetchRecentReviews(ctx context.Context, packageName string, maxResults int) ([]models.RawReview, json.RawMessage, error)
}

// CrashEventSource fetches per-version crash counts for a reporting window.
// The window boundary is pushed upstream as a query parameter; results are
// not re-filtered locally.
type CrashEventSource interface {
	FetchEventsByVersion(ctx context.Context, propertyID string, start, end time.Time) ([]models.RawCrashEvent, json.RawMessage, error)
}

// VitalsSource fetches top crash issues. Pass-through only: issues are
// forwarded verbatim in the snapshot, never aggregated.
type VitalsSource interface {
	FetchTopIssues(ctx context.Context, packageName string, pageSize int) ([]json.RawMessage, json.RawMessage, error)
}

// doJSON performs one instrumented HTTP call and returns the response body.
// Exactly one attempt: upstream flakiness is reported to the caller, never
// retried here.
func doJSON(client *http.Client, req *http.Request, source string) ([]byte, error) {
	start := time.Now()

	resp, err := client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.UpstreamCallsTotal.WithLabelValues(source, "error").Inc()
		observability.UpstreamCallDuration.WithLabelValues(source, "error").Observe(duration)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues(source, status).Inc()
	observability.UpstreamCallDuration.WithLabelValues(source, status).Observe(duration)

	if err := handleErrorResponse(resp); err != nil {
		observability.UpstreamErrorsTotal.WithLabelValues(source, string(CategorizeError(err))).Inc()
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

func handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrInvalidToken, resp.StatusCode)
	case http.StatusNotFound:
		return fmt.Errorf("%w", ErrNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	return nil
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

func extractCorrelationID(ctx context.Context) string {
	if corrIDVal := ctx.Value("correlation_id"); corrIDVal != nil {
		if corrID, ok := corrIDVal.(string); ok {
			return corrID
		}
	}
	return ""
}
