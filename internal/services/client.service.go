package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/models"
)

// PerformanceDataPath is the fixed endpoint of the performance API
const PerformanceDataPath = "/api/performance-data/"

// CSRFHeader carries the anti-forgery token on performance API calls
const CSRFHeader = "X-CSRFToken"

// CSRFCookie is the cookie Django-style backends pair with CSRFHeader
const CSRFCookie = "csrftoken"

// Fetcher retrieves performance data for a request
type Fetcher interface {
	Fetch(ctx context.Context, req models.PerformanceRequest) (*models.PerformanceResponse, error)
}

// PerformanceClient calls the performance API over HTTP
type PerformanceClient struct {
	baseURL    string
	csrfToken  string
	httpClient *http.Client
}

// NewPerformanceClient creates a client for the API rooted at baseURL
func NewPerformanceClient(baseURL, csrfToken string, timeout time.Duration) *PerformanceClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PerformanceClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		csrfToken: csrfToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithCSRFToken returns a copy of the client that sends token instead
func (c *PerformanceClient) WithCSRFToken(token string) *PerformanceClient {
	cp := *c
	cp.csrfToken = token
	return &cp
}

// Fetch performs one POST to the performance endpoint. Any transport error,
// non-2xx status or undecodable body is returned as a *FetchError.
func (c *PerformanceClient) Fetch(ctx context.Context, req models.PerformanceRequest) (*models.PerformanceResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PerformanceDataPath, bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.csrfToken != "" {
		httpReq.Header.Set(CSRFHeader, c.csrfToken)
		httpReq.AddCookie(&http.Cookie{Name: CSRFCookie, Value: c.csrfToken})
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &FetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(snippet)))}
	}

	var out models.PerformanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &FetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.Devices == nil {
		out.Devices = models.DeviceSet{}
	}
	return &out, nil
}
