package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// HTTPBarsClient fetches daily bars from an HTTP provider exposing a
// /daily endpoint: GET {base}/daily?symbol=...&start=...&end=...
type HTTPBarsClient struct {
	name        string
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	maxRetries  int
}

type HTTPBarsConfig struct {
	Provider      string // cache namespace, e.g. "TIINGO"
	BaseURL       string
	APIKey        string
	RatePerMinute int
	Timeout       time.Duration
	MaxRetries    int
}

func NewHTTPBarsClient(cfg HTTPBarsConfig) (*HTTPBarsClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("market data base URL is required")
	}
	if cfg.Provider == "" {
		cfg.Provider = "DEFAULT"
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 60
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &HTTPBarsClient{
		name:        strings.ToUpper(cfg.Provider),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60), 1),
		maxRetries:  cfg.MaxRetries,
	}, nil
}

func (c *HTTPBarsClient) Name() string { return c.name }

// DailyBars fetches [start, end] inclusive, ascending. 404 maps to a
// bad_symbol error and 429 to rate_limit; both are non-retryable here,
// everything else retries with exponential backoff.
func (c *HTTPBarsClient) DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, NewBadSymbolError(symbol, "empty symbol")
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, NewNetworkError(symbol, "rate limit wait cancelled", err)
	}

	params := url.Values{
		"symbol": {symbol},
		"start":  {FormatDate(start)},
		"end":    {FormatDate(end)},
	}
	if c.apiKey != "" {
		params.Set("token", c.apiKey)
	}
	requestURL := c.baseURL + "/daily?" + params.Encode()

	op := func() ([]Bar, error) {
		return c.fetchOnce(ctx, symbol, requestURL)
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries)), ctx)
	bars, err := backoff.RetryWithData(op, bo)
	if err != nil {
		return nil, err
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })
	return bars, nil
}

func (c *HTTPBarsClient) fetchOnce(ctx context.Context, symbol, requestURL string) ([]Bar, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, backoff.Permanent(NewNetworkError(symbol, "failed to create request", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewNetworkError(symbol, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(NewBadSymbolError(symbol, "symbol not found"))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, backoff.Permanent(NewRateLimitError(symbol, "rate limited"))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewProviderError(symbol, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)), nil)
	}

	var payload struct {
		Symbol string `json:"symbol"`
		Bars   []Bar  `json:"bars"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, NewProviderError(symbol, "failed to parse response", err)
	}
	return payload.Bars, nil
}

func (c *HTTPBarsClient) HealthCheck(ctx context.Context) error {
	end := time.Now().UTC()
	_, err := c.DailyBars(ctx, "SPY", end.AddDate(0, 0, -5), end)
	return err
}

func (c *HTTPBarsClient) Close() error { return nil }
