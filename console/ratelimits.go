// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package console

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RateLimits exposes methods to manage the rate_limits table.
//
// architecture: Database
type RateLimits interface {
	// Get queries the gate state of an account. Missing rows return the
	// zero state, not an error.
	Get(ctx context.Context, accountID uuid.UUID) (*RateLimitState, error)
	// Upsert stores the gate state of an account.
	Upsert(ctx context.Context, state *RateLimitState) error
	// Delete removes the gate state of an account.
	Delete(ctx context.Context, accountID uuid.UUID) error
}

// RateLimitState is the persisted per-account gate state.
type RateLimitState struct {
	AccountID           uuid.UUID  `json:"account_id"`
	Remaining           int        `json:"remaining"`
	LimitTotal          int        `json:"limit_total"`
	ResetAt             *time.Time `json:"reset_at,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
	CircuitOpenUntil    *time.Time `json:"circuit_open_until,omitempty"`
}
