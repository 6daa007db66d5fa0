// Package marketdata fetches day-ahead/real-time price scenarios for the
// market-scenario index M (spec.md §3), adapted from the teacher's Grid
// Status HTTP client (internal/data/gridstatus.go): the same structured
// *Error type, request/response logging, and opt-in dev-only response cache
// (SPEC_FULL §13).
package marketdata

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Interval is one priced interval for one market scenario, shaped after the
// teacher's model.LMPInterval (internal/model/marketdata.go) including the
// Congestion field the teacher never used but which this expansion wires
// into obj_type=CONGESTION_MANAGEMENT (SPEC_FULL §13).
type Interval struct {
	IntervalStartUTC time.Time `json:"interval_start_utc"`
	IntervalEndUTC   time.Time `json:"interval_end_utc"`

	Scenario string `json:"scenario"`
	Node     string `json:"node"`

	LMP        float64 `json:"lmp"`
	Energy     float64 `json:"energy"`
	Congestion float64 `json:"congestion"`
	Loss       float64 `json:"loss"`
}

func (i Interval) DurationHours() float64 { return i.IntervalEndUTC.Sub(i.IntervalStartUTC).Hours() }

// ScenarioResponse matches the JSON shape the price-scenario API returns.
type ScenarioResponse struct {
	StatusCode int        `json:"status_code"`
	Data       []Interval `json:"data"`
}

// Error is a structured error from the market-data API, adapted from the
// teacher's GridStatusError.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string { return e.Message }

// Client fetches scenario price series over HTTP, adapted from the teacher's
// GridStatusClient.
type Client struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
	Log     *zap.Logger
}

// NewClient builds a Client; baseURL defaults to the market-data API root.
func NewClient(apiKey, baseURL string, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.marketdata.example"
	}
	return &Client{APIKey: apiKey, BaseURL: baseURL, HTTP: &http.Client{Timeout: 30 * time.Second}, Log: log}
}

// QueryParams selects one scenario's price series for one node over a
// date range, mirroring the teacher's QueryLocationParams.
type QueryParams struct {
	Scenario  string
	Node      string
	StartTime time.Time
	EndTime   time.Time
}

// Query fetches one scenario's interval series, consulting the dev-only
// response cache first (internal/marketdata/cache.go) exactly as the
// teacher's QueryLocation does.
func (c *Client) Query(p QueryParams) (*ScenarioResponse, error) {
	if c.APIKey == "" {
		return nil, &Error{Code: "MISSING_API_KEY", Message: "API key is required"}
	}
	if p.Scenario == "" || p.Node == "" {
		return nil, fmt.Errorf("scenario and node are required")
	}
	if p.StartTime.IsZero() || p.EndTime.IsZero() || p.StartTime.After(p.EndTime) {
		return nil, fmt.Errorf("start_time/end_time invalid")
	}

	cache := GetCache()
	key := GenerateCacheKey(p)
	if cache != nil {
		if cached, found := cache.Get(key); found {
			if c.Log != nil {
				c.Log.Debug("marketdata cache hit", zap.String("scenario", p.Scenario), zap.String("node", p.Node))
			}
			return cached, nil
		}
	}

	u, err := url.Parse(c.BaseURL + "/v1/scenarios/" + p.Scenario + "/nodes/" + p.Node)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("start_time", p.StartTime.Format("2006-01-02"))
	q.Set("end_time", p.EndTime.Format("2006-01-02"))
	u.RawQuery = q.Encode()

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		if c.Log != nil {
			c.Log.Warn("marketdata request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if c.Log != nil {
		c.Log.Info("marketdata response", zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)),
			zap.String("scenario", p.Scenario), zap.String("node", p.Node))
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &Error{StatusCode: resp.StatusCode, Code: "UNAUTHORIZED", Message: "invalid or insufficient API key"}
	case http.StatusTooManyRequests:
		return nil, &Error{StatusCode: resp.StatusCode, Code: "RATE_LIMIT_EXCEEDED", Message: "rate limit exceeded"}
	default:
		return nil, &Error{StatusCode: resp.StatusCode, Code: "API_ERROR", Message: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	var result ScenarioResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if cache != nil {
		cache.Set(key, &result)
	}
	return &result, nil
}
