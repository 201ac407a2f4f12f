// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/chroniclehq/chronicle/console"
	"github.com/chroniclehq/chronicle/platforms"
)

// Gate thresholds.
const (
	// circuitThreshold is how many consecutive failures open the circuit.
	circuitThreshold = 3
	// circuitDuration is how long an opened circuit stays open.
	circuitDuration = 5 * time.Minute
	// timeoutRetryAfter is the synthetic retry-after recorded for fetch
	// timeouts.
	timeoutRetryAfter = 60 * time.Second
)

// ShouldFetch reports whether the gate permits a fetch at the given time.
// Fetching is blocked while the circuit is open, or while the quota is
// exhausted and the reset has not passed.
func ShouldFetch(state *console.RateLimitState, now time.Time) bool {
	if state.CircuitOpenUntil != nil && now.Before(*state.CircuitOpenUntil) {
		return false
	}
	if state.Remaining == 0 && state.ResetAt != nil && now.Before(*state.ResetAt) {
		return false
	}
	return true
}

// RecordSuccess applies a successful fetch to the gate state: observed
// headers replace the quota fields and failure tracking resets.
func RecordSuccess(state *console.RateLimitState, info platforms.RateLimitInfo, now time.Time) {
	if !info.IsZero() {
		state.Remaining = info.Remaining
		state.LimitTotal = info.Limit
		if !info.Reset.IsZero() {
			reset := info.Reset.UTC()
			state.ResetAt = &reset
		}
	}
	state.ConsecutiveFailures = 0
	state.CircuitOpenUntil = nil
}

// RecordFailure applies a failed fetch to the gate state. Rate limit
// errors exhaust the quota until their retry-after; timeouts count as
// failures with a fixed retry-after. Three consecutive failures open the
// circuit.
func RecordFailure(state *console.RateLimitState, err error, now time.Time) {
	now = now.UTC()

	retryAfter, limited := platforms.RetryAfter(err)
	if errors.Is(err, context.DeadlineExceeded) {
		retryAfter, limited = timeoutRetryAfter, true
	}
	if limited {
		state.Remaining = 0
		reset := now.Add(retryAfter)
		state.ResetAt = &reset
	}

	state.ConsecutiveFailures++
	state.LastFailureAt = &now
	if state.ConsecutiveFailures >= circuitThreshold {
		until := now.Add(circuitDuration)
		state.CircuitOpenUntil = &until
	}
}
