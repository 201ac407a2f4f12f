// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package platforms

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single provider request.
const DefaultTimeout = 30 * time.Second

const defaultRetryAfter = 60 * time.Second

// maxBodySize bounds a provider response body.
const maxBodySize = 8 << 20

// Client is the HTTP client shared by the platform fetchers. It applies a
// request timeout, a client-side request rate limit and translates response
// statuses into the provider error taxonomy.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client with the given timeout and requests-per-second
// budget. Zero values select the defaults (30s, 10 rps).
func NewClient(timeout time.Duration, rps float64) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)),
	}
}

// Get performs an authorized GET and returns the body and headers.
// Statuses map to the provider error kinds: 401 and 403 without rate limit
// exhaustion become ErrAuthExpired, 429 and exhausted 403 become
// ErrRateLimited, other non-2xx become ErrAPI and transport failures
// become ErrNetwork.
func (client *Client) Get(ctx context.Context, url string, header http.Header) (_ []byte, _ http.Header, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := client.limiter.Wait(ctx); err != nil {
		return nil, nil, ErrNetwork.Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, ErrNetwork.Wrap(err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := client.http.Do(req)
	if err != nil {
		return nil, nil, ErrNetwork.Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.Header, ErrNetwork.Wrap(err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, resp.Header, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return nil, resp.Header, ErrAuthExpired.New("status %d", resp.StatusCode)

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, resp.Header, RateLimited(RetryAfterFromHeader(resp.Header, defaultRetryAfter))

	case resp.StatusCode == http.StatusForbidden:
		info := RateLimitFromHeader(resp.Header)
		if !info.IsZero() && info.Remaining == 0 {
			retryAfter := defaultRetryAfter
			if !info.Reset.IsZero() {
				if until := time.Until(info.Reset); until > 0 {
					retryAfter = until
				}
			}
			return nil, resp.Header, RateLimited(retryAfter)
		}
		return nil, resp.Header, ErrAuthExpired.New("status %d", resp.StatusCode)

	default:
		return nil, resp.Header, APIError(resp.StatusCode, truncateBody(body))
	}
}

// GetJSON performs Get and decodes the body into target.
func (client *Client) GetJSON(ctx context.Context, url string, header http.Header, target any) (http.Header, error) {
	body, respHeader, err := client.Get(ctx, url, header)
	if err != nil {
		return respHeader, err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return respHeader, ErrAPI.Wrap(err)
	}
	return respHeader, nil
}

// BearerHeader builds an Authorization header for token auth.
func BearerHeader(token string) http.Header {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	header.Set("Accept", "application/json")
	return header
}

func truncateBody(body []byte) string {
	const limit = 256
	if len(body) > limit {
		body = body[:limit]
	}
	return string(body)
}
