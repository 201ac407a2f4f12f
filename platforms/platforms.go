// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package platforms defines the contracts shared by the external platform
// providers: the platform enum, the provider error taxonomy and rate-limit
// header accounting.
package platforms

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
)

var mon = monkit.Package()

// Platform identifies an external activity source.
type Platform string

// Supported platforms.
const (
	GitHub  Platform = "github"
	Bluesky Platform = "bluesky"
	YouTube Platform = "youtube"
	Devpad  Platform = "devpad"
	Reddit  Platform = "reddit"
	Twitter Platform = "twitter"
)

// All lists every supported platform.
var All = []Platform{GitHub, Bluesky, YouTube, Devpad, Reddit, Twitter}

// Parse converts a string into a known Platform.
func Parse(s string) (Platform, error) {
	for _, platform := range All {
		if string(platform) == s {
			return platform, nil
		}
	}
	return "", ErrUnknownPlatform.New("%q", s)
}

// Provider error kinds.
var (
	// ErrRateLimited means the platform refused the fetch due to rate
	// limiting. Use RetryAfter to find the wait hint.
	ErrRateLimited = errs.Class("platform rate limited")
	// ErrAuthExpired means the access token was rejected.
	ErrAuthExpired = errs.Class("platform auth expired")
	// ErrAPI is a non-auth, non-rate-limit error status from the platform.
	ErrAPI = errs.Class("platform api error")
	// ErrNetwork covers transport failures and timeouts.
	ErrNetwork = errs.Class("platform network error")
	// ErrUnknownPlatform is returned for unrecognized platform names.
	ErrUnknownPlatform = errs.Class("unknown platform")
)

// rateLimitedError carries the retry hint inside an ErrRateLimited.
type rateLimitedError struct {
	retryAfter time.Duration
}

func (e *rateLimitedError) Error() string {
	return "retry after " + e.retryAfter.String()
}

// RateLimited creates an ErrRateLimited carrying a retry hint.
func RateLimited(retryAfter time.Duration) error {
	return ErrRateLimited.Wrap(&rateLimitedError{retryAfter: retryAfter})
}

// RetryAfter extracts the wait hint from an ErrRateLimited, if present.
func RetryAfter(err error) (time.Duration, bool) {
	var rateLimited *rateLimitedError
	if errors.As(err, &rateLimited) {
		return rateLimited.retryAfter, true
	}
	return 0, false
}

// apiError carries the status code inside an ErrAPI.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string {
	return "status " + strconv.Itoa(e.status) + ": " + e.message
}

// APIError creates an ErrAPI from a response status and message.
func APIError(status int, message string) error {
	return ErrAPI.Wrap(&apiError{status: status, message: message})
}

// APIStatus extracts the status code from an ErrAPI, if present.
func APIStatus(err error) (int, bool) {
	var api *apiError
	if errors.As(err, &api) {
		return api.status, true
	}
	return 0, false
}

// RateLimitInfo is the rate limit accounting observed on a response.
type RateLimitInfo struct {
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	Reset     time.Time `json:"reset"`
}

// IsZero reports whether no rate limit headers were observed.
func (info RateLimitInfo) IsZero() bool {
	return info.Remaining == 0 && info.Limit == 0 && info.Reset.IsZero()
}

// RateLimitFromHeader extracts X-RateLimit-{Remaining,Limit,Reset} headers.
// Reset is interpreted as unix seconds.
func RateLimitFromHeader(header http.Header) RateLimitInfo {
	info := RateLimitInfo{
		Remaining: headerInt(header, "X-RateLimit-Remaining", 0),
		Limit:     headerInt(header, "X-RateLimit-Limit", 0),
	}
	if reset := headerInt(header, "X-RateLimit-Reset", 0); reset > 0 {
		info.Reset = time.Unix(int64(reset), 0).UTC()
	}
	return info
}

// RetryAfterFromHeader parses a Retry-After header in seconds.
func RetryAfterFromHeader(header http.Header, fallback time.Duration) time.Duration {
	if seconds := headerInt(header, "Retry-After", 0); seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

func headerInt(header http.Header, key string, fallback int) int {
	value := header.Get(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
