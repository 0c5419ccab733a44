// Package api is the HTTP client for the Anthropic OAuth usage endpoint and
// the Admin API usage/cost reports.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"quotamon/internal/logging"
	"quotamon/internal/quota"
)

const (
	defaultBaseURL = "https://api.anthropic.com"

	oauthUsagePath  = "/api/oauth/usage"
	usageReportPath = "/v1/organizations/usage_report/messages"
	costReportPath  = "/v1/organizations/cost_report"

	oauthBetaHeader = "oauth-2025-04-20"
	apiVersion      = "2023-06-01"
)

// AuthError means the token or key was rejected; the fix is re-running setup,
// not waiting for the next poll.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// FetchError covers transport failures and unexpected statuses.
type FetchError struct {
	Status  int // 0 for transport errors
	Message string
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("API returned status %d: %s", e.Status, e.Message)
	}
	return e.Message
}

// Client fetches quota and admin usage data. Concurrent calls for the same
// resource collapse into a single in-flight request.
type Client struct {
	httpClient *http.Client
	baseURL    string
	group      singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host (tests).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient swaps the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a usage API client with a 15s request timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchQuota fetches the OAuth usage snapshot for the given token.
func (c *Client) FetchQuota(ctx context.Context, oauthToken string) (*quota.Snapshot, error) {
	v, err, shared := c.group.Do("quota", func() (interface{}, error) {
		return c.fetchQuota(ctx, oauthToken)
	})
	if shared {
		logging.API("quota fetch coalesced with in-flight request")
	}
	if err != nil {
		return nil, err
	}
	return v.(*quota.Snapshot), nil
}

func (c *Client) fetchQuota(ctx context.Context, oauthToken string) (*quota.Snapshot, error) {
	reqID := uuid.NewString()[:8]
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+oauthUsagePath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+oauthToken)
	req.Header.Set("anthropic-beta", oauthBetaHeader)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.Get(logging.CategoryAPI).Error("[req:%s] quota fetch failed: %v", reqID, err)
		return nil, &FetchError{Message: fmt.Sprintf("network error: %v", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &AuthError{Message: "OAuth token is invalid or expired. Run 'quotamon setup' to re-authenticate."}
	case resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{Message: "Access denied. Your token may lack the required permissions."}
	case resp.StatusCode != http.StatusOK:
		return nil, &FetchError{Status: resp.StatusCode, Message: string(body)}
	}

	snap, err := parseQuotaResponse(body, time.Now())
	if err != nil {
		return nil, &FetchError{Message: fmt.Sprintf("malformed response: %v", err)}
	}

	logging.API("[req:%s] quota fetch ok in %v (5h=%.0f%% 7d=%.0f%%)",
		reqID, time.Since(start), snap.FiveHourUsagePct, snap.SevenDayUsagePct)
	return snap, nil
}

// FetchPlanType fetches only the plan identifier, for setup-time detection.
func (c *Client) FetchPlanType(ctx context.Context, oauthToken string) (string, error) {
	snap, err := c.FetchQuota(ctx, oauthToken)
	if err != nil {
		return "", err
	}
	return snap.PlanType, nil
}

// FetchAPIUsage aggregates token counts from the Admin API usage report and
// billed cost from the cost report.
func (c *Client) FetchAPIUsage(ctx context.Context, adminKey string) (*quota.APIUsage, error) {
	v, err, _ := c.group.Do("api_usage", func() (interface{}, error) {
		return c.fetchAPIUsage(ctx, adminKey)
	})
	if err != nil {
		return nil, err
	}
	return v.(*quota.APIUsage), nil
}

func (c *Client) fetchAPIUsage(ctx context.Context, adminKey string) (*quota.APIUsage, error) {
	usageBody, err := c.adminGet(ctx, usageReportPath, adminKey)
	if err != nil {
		return nil, err
	}
	usage := &quota.APIUsage{}
	usage.Tokens, err = parseUsageReport(usageBody)
	if err != nil {
		return nil, &FetchError{Message: fmt.Sprintf("malformed usage report: %v", err)}
	}

	// Cost report failures degrade to tokens-only rather than erroring the
	// whole panel.
	if costBody, err := c.adminGet(ctx, costReportPath, adminKey); err == nil {
		if cost, err := parseCostReport(costBody); err == nil {
			usage.CostUSD = cost
		}
	} else {
		logging.Get(logging.CategoryAPI).Warn("cost report unavailable: %v", err)
	}

	return usage, nil
}

func (c *Client) adminGet(ctx context.Context, path, adminKey string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", adminKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Message: fmt.Sprintf("network error: %v", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{Message: "Admin API key was rejected. Check admin_api_key in your config."}
	case resp.StatusCode != http.StatusOK:
		return nil, &FetchError{Status: resp.StatusCode, Message: string(body)}
	}
	return body, nil
}
