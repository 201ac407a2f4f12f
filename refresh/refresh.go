// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package refresh orchestrates on-demand account refreshes: cooperative
// platforms go through a background hook, the rest run inline, and the
// user's timeline is reassembled once sources changed.
package refresh

import (
	"context"

	"github.com/google/uuid"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/chroniclehq/chronicle/assemble"
	"github.com/chroniclehq/chronicle/console"
	"github.com/chroniclehq/chronicle/ingest"
	"github.com/chroniclehq/chronicle/platforms"
)

var (
	// Error is the default refresh error class.
	Error = errs.Class("refresh")

	// ErrInactive means the addressed account is disabled.
	ErrInactive = errs.Class("account inactive")

	mon = monkit.Package()
)

// Refresh statuses.
const (
	StatusProcessing = "processing"
	StatusRefreshed  = "refreshed"
	StatusSkipped    = "skipped"
	StatusCompleted  = "completed"
)

// cooperative platforms hand their work to the background hook instead
// of blocking the caller.
var cooperative = map[platforms.Platform]bool{
	platforms.GitHub: true,
	platforms.Reddit: true,
}

// BackgroundFunc enqueues a task to run until done outside the request.
// In tests it is typically awaited inline.
type BackgroundFunc func(task func(ctx context.Context))

// AccountResult reports a single-account refresh.
type AccountResult struct {
	Status   string             `json:"status"`
	Platform platforms.Platform `json:"platform"`
}

// AllResult reports a refresh across all active accounts.
type AllResult struct {
	Status    string         `json:"status"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Total     int            `json:"total"`
	Queued    map[string]int `json:"queued,omitempty"`
}

// Service dispatches refresh work. A nil background hook degrades every
// platform to inline processing.
//
// architecture: Service
type Service struct {
	log        *zap.Logger
	db         console.DB
	ingest     *ingest.Service
	assembler  *assemble.Service
	background BackgroundFunc
}

// NewService creates a refresh orchestrator.
func NewService(log *zap.Logger, db console.DB, ingestService *ingest.Service, assembler *assemble.Service, background BackgroundFunc) *Service {
	return &Service{
		log:        log,
		db:         db,
		ingest:     ingestService,
		assembler:  assembler,
		background: background,
	}
}

// RefreshAccount refreshes one owned account. Cooperative platforms are
// queued and reported as processing; others ingest inline and report
// refreshed or skipped.
func (s *Service) RefreshAccount(ctx context.Context, user *console.User, accountID uuid.UUID) (_ *AccountResult, err error) {
	defer mon.Task()(&ctx)(&err)

	account, err := s.ownedAccount(ctx, user, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, ErrInactive.New("account %s", accountID)
	}

	if cooperative[account.Platform] && s.background != nil {
		userID := user.ID
		captured := *account
		s.background(func(taskCtx context.Context) {
			s.runBackground(taskCtx, userID, &captured)
		})
		return &AccountResult{Status: StatusProcessing, Platform: account.Platform}, nil
	}

	result, err := s.ingest.IngestAccount(ctx, account)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if !result.Wrote() {
		return &AccountResult{Status: StatusSkipped, Platform: account.Platform}, nil
	}
	if _, err := s.assembler.AssembleUser(ctx, user.ID); err != nil {
		return nil, Error.Wrap(err)
	}
	return &AccountResult{Status: StatusRefreshed, Platform: account.Platform}, nil
}

// RefreshAll refreshes every active account of a user: cooperative
// platforms queue one background task per platform, the rest run inline
// sequentially, and the timeline is reassembled once when any inline
// account wrote a snapshot.
func (s *Service) RefreshAll(ctx context.Context, user *console.User) (_ *AllResult, err error) {
	defer mon.Task()(&ctx)(&err)

	accounts, err := s.db.Accounts().ListActiveByUser(ctx, user.ID)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	byPlatform := map[platforms.Platform][]console.Account{}
	var inline []console.Account
	for _, account := range accounts {
		if cooperative[account.Platform] && s.background != nil {
			byPlatform[account.Platform] = append(byPlatform[account.Platform], account)
			continue
		}
		inline = append(inline, account)
	}

	result := &AllResult{Total: len(accounts)}

	if len(byPlatform) > 0 {
		result.Queued = make(map[string]int, len(byPlatform))
		userID := user.ID
		for platform, group := range byPlatform {
			result.Queued[string(platform)] = len(group)
			captured := group
			s.background(func(taskCtx context.Context) {
				for i := range captured {
					s.runBackground(taskCtx, userID, &captured[i])
				}
			})
		}
	}

	wrote := false
	for i := range inline {
		account := &inline[i]
		ingested, err := s.ingest.IngestAccount(ctx, account)
		if err != nil {
			result.Failed++
			s.log.Warn("inline refresh failed",
				zap.Stringer("account", account.ID),
				zap.String("platform", string(account.Platform)),
				zap.Error(err))
			continue
		}
		result.Succeeded++
		if ingested.Wrote() {
			wrote = true
		}
	}

	if wrote {
		if _, err := s.assembler.AssembleUser(ctx, user.ID); err != nil {
			return nil, Error.Wrap(err)
		}
	}

	result.Status = StatusCompleted
	if len(byPlatform) > 0 {
		result.Status = StatusProcessing
	}
	return result, nil
}

// runBackground ingests one account and reassembles the owner's timeline.
func (s *Service) runBackground(ctx context.Context, userID uuid.UUID, account *console.Account) {
	result, err := s.ingest.IngestAccount(ctx, account)
	if err != nil {
		s.log.Warn("background refresh failed",
			zap.Stringer("account", account.ID),
			zap.Error(err))
		return
	}
	if !result.Wrote() {
		return
	}
	if _, err := s.assembler.AssembleUser(ctx, userID); err != nil {
		s.log.Warn("background reassembly failed",
			zap.Stringer("user", userID),
			zap.Error(err))
	}
}

// ownedAccount resolves an account and checks ownership.
func (s *Service) ownedAccount(ctx context.Context, user *console.User, accountID uuid.UUID) (*console.Account, error) {
	account, err := s.db.Accounts().Get(ctx, accountID)
	if err != nil {
		if console.ErrNotFound.Has(err) {
			return nil, console.ErrNotFound.New("account")
		}
		return nil, Error.Wrap(err)
	}
	owner, err := s.db.Accounts().Owner(ctx, accountID)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if owner != user.ID {
		return nil, console.ErrForbidden.New("account belongs to another user")
	}
	return account, nil
}
