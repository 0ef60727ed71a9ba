package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewPlayReviewsClient_RequiresToken(t *testing.T) {
	_, err := NewPlayReviewsClient("", "http://example", time.Second)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("NewPlayReviewsClient() error = %v, want ErrInvalidToken", err)
	}
}

func TestFetchRecentReviews_MapsResponse(t *testing.T) {
	body := `{
		"reviews": [
			{
				"reviewId": "r1",
				"authorName": "Sam",
				"comments": [{"userComment": {"text": "crashes on launch", "starRating": 1, "lastModified": {"seconds": "1718400000"}}}]
			},
			{
				"reviewId": "r2",
				"comments": [{"userComment": {"text": "", "starRating": 5, "lastModified": {"seconds": "1718300000"}}}]
			}
		]
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Authorization = %q, want Bearer tok-123", got)
		}
		if got := r.URL.Query().Get("maxResults"); got != "50" {
			t.Errorf("maxResults = %q, want 50", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	client, err := NewPlayReviewsClient("tok-123", srv.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewPlayReviewsClient: %v", err)
	}

	reviews, raw, err := client.FetchRecentReviews(context.Background(), "com.example.app", 50)
	if err != nil {
		t.Fatalf("FetchRecentReviews: %v", err)
	}
	if len(raw) == 0 {
		t.Error("raw payload is empty")
	}
	if len(reviews) != 2 {
		t.Fatalf("len(reviews) = %d, want 2", len(reviews))
	}
	if reviews[0].ID != "r1" || reviews[0].Rating != 1 || reviews[0].Author != "Sam" {
		t.Errorf("reviews[0] = %+v", reviews[0])
	}
	if reviews[0].TimestampSeconds != 1718400000 {
		t.Errorf("reviews[0].TimestampSeconds = %d, want 1718400000", reviews[0].TimestampSeconds)
	}
	if reviews[1].Author != "" {
		t.Errorf("reviews[1].Author = %q, want empty (defaulting happens in aggregation)", reviews[1].Author)
	}
}

func TestFetchRecentReviews_MissingFieldsSurfaceAsZero(t *testing.T) {
	// No starRating and unparseable seconds: record arrives with zero values
	// so the aggregator can exclude it, rather than being dropped or crashing.
	body := `{
		"reviews": [
			{"reviewId": "r1", "comments": [{"userComment": {"text": "hi", "lastModified": {"seconds": "not-a-number"}}}]},
			{"reviewId": "r2"}
		]
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	client, _ := NewPlayReviewsClient("tok", srv.URL, time.Second)
	reviews, _, err := client.FetchRecentReviews(context.Background(), "com.example.app", 10)
	if err != nil {
		t.Fatalf("FetchRecentReviews: %v", err)
	}
	// r2 has no comments at all and is skipped; r1 survives with zeroes.
	if len(reviews) != 1 {
		t.Fatalf("len(reviews) = %d, want 1", len(reviews))
	}
	if reviews[0].Rating != 0 || reviews[0].TimestampSeconds != 0 {
		t.Errorf("reviews[0] = %+v, want zero rating and timestamp", reviews[0])
	}
}

func TestFetchRecentReviews_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrInvalidToken},
		{"forbidden", http.StatusForbidden, ErrInvalidToken},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"server error", http.StatusInternalServerError, ErrUpstreamFailure},
		{"bad gateway", http.StatusBadGateway, ErrUpstreamFailure},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
			}))
			defer srv.Close()

			client, _ := NewPlayReviewsClient("tok", srv.URL, time.Second)
			_, _, err := client.FetchRecentReviews(context.Background(), "com.example.app", 10)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestFetchRecentReviews_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	client, _ := NewPlayReviewsClient("tok", srv.URL, time.Second)
	_, _, err := client.FetchRecentReviews(context.Background(), "com.example.app", 10)
	if err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestValidateToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, _ := NewPlayReviewsClient("tok", srv.URL, time.Second)
	err := client.ValidateToken(context.Background(), "com.example.app")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken error = %v, want ErrInvalidToken", err)
	}
}
