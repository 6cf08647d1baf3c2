// Package readings is the client for the upstream flood monitoring API
// ("express"), which serves the latest rainfall and river level
// readings per state as paginated JSON.
package readings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hydrointel-my/infobanjir-rag/internal/core/domain"
)

const (
	pathLatestRain  = "/api/readings/latest/rain"
	pathLatestWater = "/api/readings/latest/water_level"
)

type Client struct {
	baseURL      string
	httpClient   *http.Client
	limiter      *rate.Limiter
	defaultLimit int
}

// New builds a client with a bounded request timeout and a polite rate
// limit toward the public upstream. defaultLimit applies when a caller
// passes a non-positive limit.
func New(baseURL string, requestsPerSecond float64, defaultLimit int) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	if defaultLimit <= 0 {
		defaultLimit = 1000
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		limiter:      rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		defaultLimit: defaultLimit,
	}
}

func (c *Client) LatestRainfall(ctx context.Context, state string, limit int) ([]domain.Reading, error) {
	return c.fetch(ctx, pathLatestRain, state, limit, "rain_mm")
}

func (c *Client) LatestWaterLevel(ctx context.Context, state string, limit int) ([]domain.Reading, error) {
	return c.fetch(ctx, pathLatestWater, state, limit, "river_level_m")
}

func (c *Client) fetch(ctx context.Context, path, state string, limit int, valueKey string) ([]domain.Reading, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	if state != "" {
		params.Set("state", state)
	}
	if limit <= 0 {
		limit = c.defaultLimit
	}
	params.Set("limit", strconv.Itoa(limit))
	endpoint := c.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create readings request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("readings request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(body)); msg != "" {
			return nil, fmt.Errorf("readings status: %s: %s", resp.Status, msg)
		}
		return nil, fmt.Errorf("readings status: %s", resp.Status)
	}

	var payload struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode readings response: %w", err)
	}

	out := make([]domain.Reading, 0, len(payload.Items))
	for _, item := range payload.Items {
		out = append(out, domain.Reading{
			StationID:   stringField(item, "station_id"),
			StationName: stringField(item, "station_name"),
			District:    stringField(item, "district"),
			State:       stringField(item, "state"),
			RecordedAt:  stringField(item, "recorded_at"),
			Source:      stringField(item, "source"),
			Value:       numericField(item, valueKey),
		})
	}
	return out, nil
}

// Upstream records are loose: fields may be missing or mistyped. A
// wrong-typed field degrades to its zero value rather than failing the
// whole batch.
func stringField(item map[string]any, key string) string {
	if v, ok := item[key].(string); ok {
		return v
	}
	return ""
}

func numericField(item map[string]any, key string) *float64 {
	if v, ok := item[key].(float64); ok {
		return &v
	}
	return nil
}
