// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chroniclehq/chronicle/console"
	"github.com/chroniclehq/chronicle/platforms"
)

func TestShouldFetchOpen(t *testing.T) {
	now := time.Now().UTC()
	assert.True(t, ShouldFetch(&console.RateLimitState{}, now))

	// Remaining quota allows fetching even before the reset.
	reset := now.Add(time.Hour)
	assert.True(t, ShouldFetch(&console.RateLimitState{Remaining: 10, ResetAt: &reset}, now))
}

func TestShouldFetchRateLimited(t *testing.T) {
	now := time.Now().UTC()
	reset := now.Add(time.Minute)

	state := &console.RateLimitState{Remaining: 0, ResetAt: &reset}
	assert.False(t, ShouldFetch(state, now))
	assert.True(t, ShouldFetch(state, reset.Add(time.Second)))
}

func TestShouldFetchCircuitOpen(t *testing.T) {
	now := time.Now().UTC()
	until := now.Add(circuitDuration)

	state := &console.RateLimitState{Remaining: 100, CircuitOpenUntil: &until}
	assert.False(t, ShouldFetch(state, now))
	assert.True(t, ShouldFetch(state, until.Add(time.Second)))
}

func TestRecordFailureOpensCircuit(t *testing.T) {
	now := time.Now().UTC()
	state := &console.RateLimitState{}

	RecordFailure(state, platforms.ErrNetwork.New("down"), now)
	RecordFailure(state, platforms.ErrNetwork.New("down"), now)
	assert.Nil(t, state.CircuitOpenUntil)
	assert.Equal(t, 2, state.ConsecutiveFailures)

	RecordFailure(state, platforms.ErrNetwork.New("down"), now)
	require.NotNil(t, state.CircuitOpenUntil)
	assert.Equal(t, now.Add(circuitDuration), *state.CircuitOpenUntil)
	assert.False(t, ShouldFetch(state, now))
}

func TestRecordFailureRateLimited(t *testing.T) {
	now := time.Now().UTC()
	state := &console.RateLimitState{Remaining: 50}

	RecordFailure(state, platforms.RateLimited(2*time.Minute), now)
	assert.Equal(t, 0, state.Remaining)
	require.NotNil(t, state.ResetAt)
	assert.Equal(t, now.Add(2*time.Minute), *state.ResetAt)
	assert.False(t, ShouldFetch(state, now))
}

func TestRecordFailureTimeout(t *testing.T) {
	now := time.Now().UTC()
	state := &console.RateLimitState{Remaining: 50}

	RecordFailure(state, context.DeadlineExceeded, now)
	assert.Equal(t, 0, state.Remaining)
	require.NotNil(t, state.ResetAt)
	assert.Equal(t, now.Add(timeoutRetryAfter), *state.ResetAt)
}

func TestRecordSuccessClearsFailures(t *testing.T) {
	now := time.Now().UTC()
	until := now.Add(time.Minute)
	state := &console.RateLimitState{
		ConsecutiveFailures: 3,
		CircuitOpenUntil:    &until,
	}

	RecordSuccess(state, platforms.RateLimitInfo{Remaining: 4999, Limit: 5000, Reset: now.Add(time.Hour)}, now)
	assert.Zero(t, state.ConsecutiveFailures)
	assert.Nil(t, state.CircuitOpenUntil)
	assert.Equal(t, 4999, state.Remaining)
	assert.Equal(t, 5000, state.LimitTotal)
	assert.True(t, ShouldFetch(state, now))
}
