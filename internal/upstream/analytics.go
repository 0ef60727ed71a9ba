package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kjstillabower/release-health-service/internal/models"
)

// AnalyticsCrashClient fetches per-version crash event counts from the GA4
// reporting API. The reporting window travels upstream as the date range of
// the report query.
type AnalyticsCrashClient struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewAnalyticsCrashClient validates the token and returns a client.
func NewAnalyticsCrashClient(token, baseURL string, timeout time.Duration) (*AnalyticsCrashClient, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: API token is required", ErrInvalidToken)
	}

	return &AnalyticsCrashClient{
		token:   token,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type runReportRequest struct {
	DateRanges []struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	} `json:"dateRanges"`
	Dimensions []struct {
		Name string `json:"name"`
	} `json:"dimensions"`
	Metrics []struct {
		Name string `json:"name"`
	} `json:"metrics"`
}

type runReportResponse struct {
	Rows []struct {
		DimensionValues []struct {
			Value string `json:"value"`
		} `json:"dimensionValues"`
		MetricValues []struct {
			Value string `json:"value"`
		} `json:"metricValues"`
	} `json:"rows"`
}

// FetchEventsByVersion runs one crash-count report grouped by app version for
// the [start, end] window. Rows with an unparseable count are dropped, never
// counted as zero.
func (c *AnalyticsCrashClient) FetchEventsByVersion(ctx context.Context, propertyID string, start, end time.Time) ([]models.RawCrashEvent, json.RawMessage, error) {
	req, err := c.buildRequest(ctx, propertyID, start, end)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}

	body, err := doJSON(c.client, req, "analytics_crashes")
	if err != nil {
		return nil, nil, err
	}

	var apiResp runReportResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, nil, fmt.Errorf("parse response: %w", err)
	}

	return mapCrashRows(apiResp), json.RawMessage(body), nil
}

func (c *AnalyticsCrashClient) buildRequest(ctx context.Context, propertyID string, start, end time.Time) (*http.Request, error) {
	var reportReq runReportRequest
	reportReq.DateRanges = append(reportReq.DateRanges, struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}{
		StartDate: start.UTC().Format("2006-01-02"),
		EndDate:   end.UTC().Format("2006-01-02"),
	})
	reportReq.Dimensions = append(reportReq.Dimensions, struct {
		Name string `json:"name"`
	}{Name: "appVersion"})
	reportReq.Metrics = append(reportReq.Metrics, struct {
		Name string `json:"name"`
	}{Name: "crashEvents"})

	payload, err := json.Marshal(reportReq)
	if err != nil {
		return nil, fmt.Errorf("encode report request: %w", err)
	}

	endpoint := c.baseURL + "/properties/" + propertyID + ":runReport"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}
	return req, nil
}

func mapCrashRows(apiResp runReportResponse) []models.RawCrashEvent {
	events := make([]models.RawCrashEvent, 0, len(apiResp.Rows))
	for _, row := range apiResp.Rows {
		if len(row.DimensionValues) == 0 || len(row.MetricValues) == 0 {
			continue
		}
		count, err := strconv.Atoi(row.MetricValues[0].Value)
		if err != nil || count < 0 {
			continue
		}
		events = append(events, models.RawCrashEvent{
			AppVersion: row.DimensionValues[0].Value,
			EventCount: count,
		})
	}
	return events
}
