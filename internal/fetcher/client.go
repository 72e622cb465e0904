// Package fetcher contains the HTTP clients for the two upstream data
// sources: the Elexon BMRS API and the National Grid Carbon Intensity API.
// Both are public, unauthenticated, GET-only JSON APIs.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const defaultUserAgent = "gridwatch/1.0"

// SourceClient is the capability shared by every upstream client.
type SourceClient interface {
	HealthCheck(ctx context.Context) bool
}

// envelope is the common `{"data": ...}` response wrapper. Data is usually a
// JSON array; a few carbon endpoints return a single object.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// httpClient is the shared transport: per-request timeout, exponential
// backoff for transport failures only. 4xx/5xx responses are never retried
// here; 429 surfaces as RateLimitError so callers can back off deliberately.
type httpClient struct {
	baseURL    string
	client     *http.Client
	maxretries uint64
	logger     zerolog.Logger
}

func newHTTPClient(baseURL string, timeout time.Duration, maxRetries int, logger zerolog.Logger) *httpClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := uint64(3)
	if maxRetries > 0 {
		retries = uint64(maxRetries)
	}
	return &httpClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: timeout},
		maxretries: retries,
		logger:     logger,
	}
}

func (c *httpClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", defaultUserAgent)

		started := time.Now()
		resp, err := c.client.Do(req)
		if err != nil {
			c.logger.Warn().Err(err).Str("url", endpoint).Msg("request failed, will retry")
			return err
		}
		defer resp.Body.Close()

		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		c.logger.Debug().
			Str("url", endpoint).
			Int("status", resp.StatusCode).
			Dur("elapsed", time.Since(started)).
			Msg("api response")

		if resp.StatusCode == http.StatusTooManyRequests {
			return backoff.Permanent(&RateLimitError{Body: string(payload)})
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(&APIError{Status: resp.StatusCode, Body: string(payload)})
		}

		body = payload
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxretries-1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return body, nil
}

// getData fetches an endpoint and unwraps the response envelope into its
// individual items. A single-object payload yields one item.
func (c *httpClient) getData(ctx context.Context, path string, params url.Values) ([]json.RawMessage, error) {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode response envelope: %w", err)
	}
	if len(env.Data) == 0 {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(env.Data, &items); err == nil {
		return items, nil
	}
	return []json.RawMessage{env.Data}, nil
}
