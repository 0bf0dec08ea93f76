package statsfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// MLB StatsAPI endpoints
	DefaultBaseURL     = "https://statsapi.mlb.com/api/v1"
	DefaultLiveBaseURL = "https://statsapi.mlb.com/api/v1.1"

	// Timeout for a single HTTP attempt
	requestTimeout = 10 * time.Second

	// Attempts per call, including the first
	defaultRetries = 3

	// Base delay between attempts, doubled each retry
	defaultRetryBackoff = 500 * time.Millisecond

	// MLB league sport id
	mlbSportID = "1"
)

// Options configures a Client. Zero values select defaults.
type Options struct {
	BaseURL      string
	LiveBaseURL  string
	UserAgent    string
	Timeout      time.Duration
	Retries      int
	RetryBackoff time.Duration
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

// Client is a typed client over the upstream stats feed. It maps requests
// and responses only; no classification happens here.
type Client struct {
	baseURL      string
	liveBaseURL  string
	userAgent    string
	httpClient   *http.Client
	retries      int
	retryBackoff time.Duration
	logger       *zap.Logger
}

// NewClient creates a new stats feed client
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		liveBaseURL:  strings.TrimRight(opts.LiveBaseURL, "/"),
		userAgent:    opts.UserAgent,
		httpClient:   opts.HTTPClient,
		retries:      opts.Retries,
		retryBackoff: opts.RetryBackoff,
		logger:       opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.liveBaseURL == "" {
		c.liveBaseURL = DefaultLiveBaseURL
	}
	if c.httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = requestTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if c.retries <= 0 {
		c.retries = defaultRetries
	}
	if c.retryBackoff <= 0 {
		c.retryBackoff = defaultRetryBackoff
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.userAgent == "" {
		c.userAgent = "matchup-engine/1.0"
	}
	return c
}

// getJSON performs a GET with retry on transient failures and decodes the body into out
func (c *Client) getJSON(ctx context.Context, op, endpoint string, params url.Values, out any) error {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var lastErr *FeedError
	for attempt := 1; attempt <= c.retries; attempt++ {
		err := c.fetchOnce(ctx, op, reqURL, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if !err.retryable() || attempt == c.retries || ctx.Err() != nil {
			break
		}

		delay := c.retryBackoff * time.Duration(1<<(attempt-1))
		c.logger.Debug("retrying feed request",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &FeedError{Op: op, URL: reqURL, Kind: ErrFeedUnavailable, Err: ctx.Err()}
		case <-timer.C:
		}
	}
	return lastErr
}

func (c *Client) fetchOnce(ctx context.Context, op, reqURL string, out any) *FeedError {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &FeedError{Op: op, URL: reqURL, Kind: ErrFeedUnavailable, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FeedError{Op: op, URL: reqURL, Kind: ErrFeedUnavailable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &FeedError{
			Op:         op,
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Kind:       ErrFeedUnavailable,
			Err:        fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// A body cut off by a deadline is an availability problem, not a shape problem
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return &FeedError{Op: op, URL: reqURL, Kind: ErrFeedUnavailable, Err: err}
		}
		return &FeedError{Op: op, URL: reqURL, Kind: ErrMalformedPayload, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
