// Package sumup walks the cursor-paginated SumUp transactions history API
// and materializes the complete raw result set for a date window.
package sumup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/brightonpier/sales-etl/internal/etl"
	"github.com/brightonpier/sales-etl/internal/logger"
	"github.com/brightonpier/sales-etl/internal/retry"
)

const (
	historyPath = "/me/transactions/history"

	// maxPages bounds the pagination walk so a cyclic next link cannot spin
	// forever.
	maxPages = 1000
)

// Config holds everything the client needs to talk to the API.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.sumup.com/v0.1".
	BaseURL string

	// APIKey is the bearer token.
	APIKey string

	// RequestsPerSecond throttles page requests. Zero means no throttle.
	RequestsPerSecond float64

	// Retry is applied per page to transient failures.
	Retry retry.Policy

	// Timeout caps each HTTP request. Zero uses a 30s default.
	Timeout time.Duration
}

// Client fetches transactions page by page. The only state kept between
// requests is the in-progress cursor; a Client is safe to reuse across runs.
type Client struct {
	rest    *resty.Client
	limiter *rate.Limiter
	retry   retry.Policy
}

// NewClient builds a client from cfg.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	rest := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.APIKey).
		SetTimeout(timeout)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		rest:    rest,
		limiter: limiter,
		retry:   cfg.Retry,
	}
}

// Fetch walks the history endpoint for the given window and returns every
// raw transaction the API handed back, in page order. The walk fails closed:
// a non-success status after retries, or a page without an items key, aborts
// the fetch and returns the accumulated records together with the error so
// the caller can log how much was discarded. No deduplication and no shape
// validation happen here.
func (c *Client) Fetch(ctx context.Context, window etl.Window) ([]Transaction, error) {
	log := logger.FromContext(ctx)

	var all []Transaction

	// First request filters by window; subsequent requests carry the server
	// cursor verbatim and no other parameters.
	query := fmt.Sprintf("from=%s&to=%s",
		window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"))

	for page := 1; ; page++ {
		if page > maxPages {
			return all, fmt.Errorf("%w: pagination did not terminate after %d pages", etl.ErrProtocol, maxPages)
		}

		body, err := c.fetchPage(ctx, query)
		if err != nil {
			return all, err
		}

		var resp historyPage
		if err := json.Unmarshal(body, &resp); err != nil {
			return all, fmt.Errorf("%w: decoding page %d: %v", etl.ErrProtocol, page, err)
		}
		if resp.Items == nil {
			return all, fmt.Errorf("%w: page %d has no items key", etl.ErrProtocol, page)
		}

		all = append(all, *resp.Items...)
		log.Debug().Int("page", page).Int("items", len(*resp.Items)).Msg("fetched transactions page")

		next, ok := resp.nextHref()
		if !ok {
			break
		}
		query = next
	}

	log.Info().Int("total", len(all)).Str("window", window.String()).Msg("transaction fetch complete")
	return all, nil
}

// fetchPage issues one request with the given query string, retrying
// transient failures under the client's retry policy.
func (c *Client) fetchPage(ctx context.Context, query string) ([]byte, error) {
	log := logger.FromContext(ctx)

	var body []byte
	policy := c.retry
	policy.OnRetry = func(attempt int, err error) {
		log.Warn().Err(err).Int("attempt", attempt).Msg("retrying transactions page")
	}

	err := policy.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		resp, err := c.rest.R().
			SetContext(ctx).
			SetQueryString(query).
			Get(historyPath)
		if err != nil {
			return etl.Transient(err)
		}

		switch {
		case resp.IsSuccess():
			body = resp.Body()
			return nil
		case resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError:
			return etl.Transient(fmt.Errorf("transactions history returned %d", resp.StatusCode()))
		default:
			return fmt.Errorf("transactions history returned %d: %s", resp.StatusCode(), resp.String())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	return body, nil
}
