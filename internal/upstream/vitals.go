package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// PlayVitalsClient fetches top crash issues from the Play Vitals API.
// Issues are opaque to this service: they are forwarded verbatim in the
// snapshot and never aggregated.
type PlayVitalsClient struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewPlayVitalsClient validates the token and returns a client.
func NewPlayVitalsClient(token, baseURL string, timeout time.Duration) (*PlayVitalsClient, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: API token is required", ErrInvalidToken)
	}

	return &PlayVitalsClient{
		token:   token,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type vitalsResponse struct {
	ErrorIssues []json.RawMessage `json:"errorIssues"`
}

// FetchTopIssues performs exactly one attempt against the error-issues
// search endpoint.
func (c *PlayVitalsClient) FetchTopIssues(ctx context.Context, packageName string, pageSize int) ([]json.RawMessage, json.RawMessage, error) {
	req, err := c.buildRequest(ctx, packageName, pageSize)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}

	body, err := doJSON(c.client, req, "play_vitals")
	if err != nil {
		return nil, nil, err
	}

	var apiResp vitalsResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, nil, fmt.Errorf("parse response: %w", err)
	}

	return apiResp.ErrorIssues, json.RawMessage(body), nil
}

func (c *PlayVitalsClient) buildRequest(ctx context.Context, packageName string, pageSize int) (*http.Request, error) {
	baseURL, err := url.Parse(c.baseURL + "/apps/" + url.PathEscape(packageName) + "/errorIssues:search")
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	params.Set("pageSize", strconv.Itoa(pageSize))
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
