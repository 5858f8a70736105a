// Package weather pulls hourly observations for the seafront from the
// Meteostat point API and shapes them for the Weather warehouse table.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/brightonpier/sales-etl/internal/etl"
	"github.com/brightonpier/sales-etl/internal/logger"
	"github.com/brightonpier/sales-etl/internal/retry"
)

const hourlyPath = "/point/hourly"

// Observation is one raw hourly reading. Optional sensors come back null,
// hence the pointers.
type Observation struct {
	Time string   `json:"time"`
	Temp *float64 `json:"temp"`
	Prcp *float64 `json:"prcp"`
	Wspd *float64 `json:"wspd"`
}

// hourlyResponse is the endpoint envelope. Data is a pointer so a missing
// data key reads as a protocol error rather than an empty result.
type hourlyResponse struct {
	Data *[]Observation `json:"data"`
}

// Config holds the endpoint, key and station coordinates.
type Config struct {
	BaseURL   string
	APIKey    string
	Latitude  float64
	Longitude float64
	Retry     retry.Policy
	Timeout   time.Duration
}

// Client fetches hourly observations for one point.
type Client struct {
	rest  *resty.Client
	lat   float64
	lon   float64
	retry retry.Policy
}

// NewClient builds a client from cfg.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	rest := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("x-rapidapi-key", cfg.APIKey).
		SetTimeout(timeout)

	return &Client{rest: rest, lat: cfg.Latitude, lon: cfg.Longitude, retry: cfg.Retry}
}

// Fetch retrieves every hourly observation in the window. The endpoint is
// not paginated; one request covers the whole range. Transient failures are
// retried; anything else fails closed.
func (c *Client) Fetch(ctx context.Context, window etl.Window) ([]Observation, error) {
	log := logger.FromContext(ctx)

	policy := c.retry
	policy.OnRetry = func(attempt int, err error) {
		log.Warn().Err(err).Int("attempt", attempt).Msg("retrying weather fetch")
	}

	var body []byte
	err := policy.Do(ctx, func(ctx context.Context) error {
		resp, err := c.rest.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"lat":   fmt.Sprintf("%.4f", c.lat),
				"lon":   fmt.Sprintf("%.4f", c.lon),
				"start": window.Start.Format("2006-01-02"),
				"end":   window.End.Format("2006-01-02"),
			}).
			Get(hourlyPath)
		if err != nil {
			return etl.Transient(err)
		}

		switch {
		case resp.IsSuccess():
			body = resp.Body()
			return nil
		case resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError:
			return etl.Transient(fmt.Errorf("hourly endpoint returned %d", resp.StatusCode()))
		default:
			return fmt.Errorf("hourly endpoint returned %d: %s", resp.StatusCode(), resp.String())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("fetch weather: %w", err)
	}

	var resp hourlyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding hourly response: %v", etl.ErrProtocol, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: hourly response has no data key", etl.ErrProtocol)
	}

	log.Info().Int("observations", len(*resp.Data)).Str("window", window.String()).Msg("weather fetch complete")
	return *resp.Data, nil
}
