package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kjstillabower/release-health-service/internal/models"
)

// PlayReviewsClient fetches recent reviews from the Play Console reviews API.
type PlayReviewsClient struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewPlayReviewsClient validates the token and returns a client.
func NewPlayReviewsClient(token, baseURL string, timeout time.Duration) (*PlayReviewsClient, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: API token is required", ErrInvalidToken)
	}

	return &PlayReviewsClient{
		token:   token,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// playReviewsResponse mirrors the upstream shape. Every field is optional on
// the wire; missing rating or timestamp surfaces as the zero value and the
// record is excluded downstream rather than treated as zero.
type playReviewsResponse struct {
	Reviews []struct {
		ReviewID   string `json:"reviewId"`
		AuthorName string `json:"authorName"`
		Comments   []struct {
			UserComment struct {
				Text         string `json:"text"`
				StarRating   int    `json:"starRating"`
				LastModified struct {
					Seconds string `json:"seconds"`
				} `json:"lastModified"`
			} `json:"userComment"`
		} `json:"comments"`
	} `json:"reviews"`
}

// FetchRecentReviews performs exactly one attempt against the reviews
// endpoint and maps the response into raw review records.
func (c *PlayReviewsClient) FetchRecentReviews(ctx context.Context, packageName string, maxResults int) ([]models.RawReview, json.RawMessage, error) {
	req, err := c.buildRequest(ctx, packageName, maxResults)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}

	body, err := doJSON(c.client, req, "play_reviews")
	if err != nil {
		return nil, nil, err
	}

	var apiResp playReviewsResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, nil, fmt.Errorf("parse response: %w", err)
	}

	return mapReviews(apiResp), json.RawMessage(body), nil
}

func (c *PlayReviewsClient) buildRequest(ctx context.Context, packageName string, maxResults int) (*http.Request, error) {
	baseURL, err := url.Parse(c.baseURL + "/applications/" + url.PathEscape(packageName) + "/reviews")
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	params.Set("maxResults", strconv.Itoa(maxResults))
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}
	return req, nil
}

func mapReviews(apiResp playReviewsResponse) []models.RawReview {
	reviews := make([]models.RawReview, 0, len(apiResp.Reviews))
	for _, r := range apiResp.Reviews {
		if len(r.Comments) == 0 {
			continue
		}
		uc := r.Comments[0].UserComment

		var ts int64
		if uc.LastModified.Seconds != "" {
			if parsed, err := strconv.ParseInt(uc.LastModified.Seconds, 10, 64); err == nil {
				ts = parsed
			}
		}

		reviews = append(reviews, models.RawReview{
			ID:               r.ReviewID,
			Rating:           uc.StarRating,
			Text:             uc.Text,
			TimestampSeconds: ts,
			Author:           r.AuthorName,
		})
	}
	return reviews
}

// ValidateToken issues a minimal reviews request to confirm the token works.
// Used by startup validation and degraded-recovery probes.
func (c *PlayReviewsClient) ValidateToken(ctx context.Context, packageName string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := c.buildRequest(ctx, packageName, 1)
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: token rejected", ErrInvalidToken)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("validation failed: HTTP %d", resp.StatusCode)
	}
	return nil
}
