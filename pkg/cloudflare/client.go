package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/jepsonlabs/immich-monitor/pkg/models"
	"github.com/jepsonlabs/immich-monitor/pkg/retry"
)

const defaultBaseURL = "https://api.cloudflare.com/client/v4"

// zoneAnalyticsQuery sums HTTP request groups for the trailing window.
// One group per hour, 24 groups for the 24-hour window.
const zoneAnalyticsQuery = `
query ZoneAnalytics($zoneTag: String!, $start: Time!) {
    viewer {
        zones(filter: { zoneTag: $zoneTag }) {
            httpRequests1hGroups(
                limit: 24
                filter: { datetime_gt: $start }
            ) {
                sum {
                    requests
                    bytes
                    cachedBytes
                    cachedRequests
                    threats
                }
                dimensions {
                    datetime
                }
            }
        }
    }
}`

// Options configures the CloudFlare API client
type Options struct {
	ZoneID   string
	APIToken string
	BaseURL  string
	Timeout  time.Duration
	Retry    retry.Config
}

// Client talks to the CloudFlare GraphQL and REST APIs
type Client struct {
	zoneID     string
	apiToken   string
	baseURL    string
	httpClient *http.Client
	retryConf  retry.Config
}

// NewClient creates a CloudFlare API client
func NewClient(opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	retryConf := opts.Retry
	if retryConf.MaxRetries == 0 && retryConf.InitialBackoff == 0 {
		retryConf = retry.DefaultConfig()
	}

	return &Client{
		zoneID:     opts.ZoneID,
		apiToken:   opts.APIToken,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retryConf:  retryConf,
	}
}

// Configured reports whether credentials are present
func (c *Client) Configured() bool {
	return c.zoneID != "" && c.apiToken != ""
}

// AnalyticsTotals holds 24-hour sums across the hourly groups
type AnalyticsTotals struct {
	Requests       int64
	Bytes          int64
	CachedRequests int64
	CachedBytes    int64
	Threats        int64
	Groups         int
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type graphqlResponse struct {
	Data struct {
		Viewer struct {
			Zones []struct {
				HTTPRequests1hGroups []struct {
					Sum struct {
						Requests       int64 `json:"requests"`
						Bytes          int64 `json:"bytes"`
						CachedBytes    int64 `json:"cachedBytes"`
						CachedRequests int64 `json:"cachedRequests"`
						Threats        int64 `json:"threats"`
					} `json:"sum"`
					Dimensions struct {
						Datetime string `json:"datetime"`
					} `json:"dimensions"`
				} `json:"httpRequests1hGroups"`
			} `json:"zones"`
		} `json:"viewer"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// ZoneAnalytics fetches and sums the trailing 24 hours of zone analytics
func (c *Client) ZoneAnalytics(ctx context.Context) (*AnalyticsTotals, error) {
	start := time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)

	reqBody := graphqlRequest{
		Query: zoneAnalyticsQuery,
		Variables: map[string]interface{}{
			"zoneTag": c.zoneID,
			"start":   start,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL request: %w", err)
	}

	var gqlResp graphqlResponse
	err = retry.Do(ctx, c.retryConf, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/graphql", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("CloudFlare API returned %d", resp.StatusCode)
		}

		gqlResp = graphqlResponse{}
		return json.NewDecoder(resp.Body).Decode(&gqlResp)
	})
	if err != nil {
		return nil, err
	}

	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("CloudFlare GraphQL error: %s", gqlResp.Errors[0].Message)
	}

	zones := gqlResp.Data.Viewer.Zones
	if len(zones) == 0 {
		return nil, fmt.Errorf("no analytics data available")
	}

	totals := &AnalyticsTotals{Groups: len(zones[0].HTTPRequests1hGroups)}
	for _, group := range zones[0].HTTPRequests1hGroups {
		totals.Requests += group.Sum.Requests
		totals.Bytes += group.Sum.Bytes
		totals.CachedRequests += group.Sum.CachedRequests
		totals.CachedBytes += group.Sum.CachedBytes
		totals.Threats += group.Sum.Threats
	}

	return totals, nil
}

type zoneResponse struct {
	Result struct {
		Name   string `json:"name"`
		Status string `json:"status"`
		Plan   struct {
			Name string `json:"name"`
		} `json:"plan"`
	} `json:"result"`
	Success bool `json:"success"`
}

// ZoneInfo fetches zone name, status and plan
func (c *Client) ZoneInfo(ctx context.Context) (*models.ZoneInfo, error) {
	var zoneResp zoneResponse
	err := retry.Do(ctx, c.retryConf, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s/zones/%s", c.baseURL, c.zoneID), nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("CloudFlare API returned %d", resp.StatusCode)
		}

		zoneResp = zoneResponse{}
		return json.NewDecoder(resp.Body).Decode(&zoneResp)
	})
	if err != nil {
		return nil, err
	}

	info := &models.ZoneInfo{
		Name:   zoneResp.Result.Name,
		Status: zoneResp.Result.Status,
		Plan:   zoneResp.Result.Plan.Name,
	}
	if info.Status == "" {
		info.Status = "unknown"
	}
	if info.Plan == "" {
		info.Plan = "unknown"
	}

	return info, nil
}

// Metrics assembles the full /cloudflare payload. Upstream failures are
// reported inside the payload so dashboards keep rendering.
func (c *Client) Metrics(ctx context.Context) *models.CloudflareMetrics {
	if !c.Configured() {
		return &models.CloudflareMetrics{
			Error:      "CloudFlare credentials not configured",
			Configured: false,
		}
	}

	totals, err := c.ZoneAnalytics(ctx)
	if err != nil {
		return &models.CloudflareMetrics{
			Error:      err.Error(),
			Configured: true,
		}
	}

	if totals.Groups == 0 {
		// Free plans deliver analytics with delay; low-traffic zones may
		// legitimately have no groups yet.
		return &models.CloudflareMetrics{
			Zone:       models.ZoneInfo{Name: "unknown", Status: "unknown", Plan: "unknown"},
			Health:     models.ZoneHealth{ZoneActive: true},
			Configured: true,
			Note:       "No analytics data available for the last 24 hours (free plan delay or low traffic)",
		}
	}

	zone, err := c.ZoneInfo(ctx)
	if err != nil {
		// Analytics succeeded; degrade zone detail rather than fail
		zone = &models.ZoneInfo{Name: "unknown", Status: "unknown", Plan: "unknown"}
	}

	uncached := totals.Requests - totals.CachedRequests
	var cacheHitRatio float64
	if totals.Requests > 0 {
		cacheHitRatio = round2(float64(totals.CachedRequests) / float64(totals.Requests) * 100)
	}

	return &models.CloudflareMetrics{
		Zone: *zone,
		Requests24h: models.RequestStats{
			Total:         totals.Requests,
			Cached:        totals.CachedRequests,
			Uncached:      uncached,
			CacheHitRatio: cacheHitRatio,
		},
		Bandwidth: models.BandwidthStats{
			TotalBytes:  totals.Bytes,
			TotalGB:     round2(float64(totals.Bytes) / (1 << 30)),
			CachedBytes: totals.CachedBytes,
		},
		Security: models.SecurityStats{
			ThreatsBlocked: totals.Threats,
		},
		Health: models.ZoneHealth{
			ZoneActive: zone.Status == "active",
			Alert:      zone.Status != "active",
		},
		Configured: true,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
