// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package console holds the account-management entities, their database
// contracts and the ownership-checking service in front of them.
package console

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/chroniclehq/chronicle/console/consoleauth"
	"github.com/chroniclehq/chronicle/corpus"
	"github.com/chroniclehq/chronicle/encryption"
	"github.com/chroniclehq/chronicle/platforms"
)

var (
	// Error is the default console service error class.
	Error = errs.Class("console service")

	// ErrUnauthorized means the request carried no valid api key.
	ErrUnauthorized = errs.Class("unauthorized")
	// ErrForbidden means the caller does not own the addressed resource.
	ErrForbidden = errs.Class("forbidden")
	// ErrNotFound means the addressed resource does not exist.
	ErrNotFound = errs.Class("not found")
	// ErrConflict means the request collides with existing state.
	ErrConflict = errs.Class("conflict")
	// ErrValidation means the request payload is malformed.
	ErrValidation = errs.Class("validation")

	mon = monkit.Package()
)

// ReassembleFunc queues a timeline reassembly for a user whose sources
// changed. A nil hook disables queuing.
type ReassembleFunc func(ctx context.Context, userID uuid.UUID)

// Service implements account management on top of DB: api key
// authentication, ownership checks, token encryption and the account
// deletion cascade. Plaintext tokens never leave the service.
//
// architecture: Service
type Service struct {
	log      *zap.Logger
	store    DB
	backend  corpus.Backend
	key      *encryption.Key
	validate *validator.Validate

	reassemble ReassembleFunc
}

// NewService creates a console service.
func NewService(log *zap.Logger, store DB, backend corpus.Backend, key *encryption.Key, reassemble ReassembleFunc) (*Service, error) {
	switch {
	case log == nil:
		return nil, errs.New("log can't be nil")
	case store == nil:
		return nil, errs.New("store can't be nil")
	case backend == nil:
		return nil, errs.New("backend can't be nil")
	case key == nil:
		return nil, errs.New("encryption key can't be nil")
	}
	return &Service{
		log:        log,
		store:      store,
		backend:    backend,
		key:        key,
		validate:   validator.New(),
		reassemble: reassemble,
	}, nil
}

// DB exposes the underlying store for chores that enumerate accounts.
func (s *Service) DB() DB { return s.store }

// AuthenticateKey resolves an api key secret to its owning user and
// touches last_used_at.
func (s *Service) AuthenticateKey(ctx context.Context, secret string) (_ *User, err error) {
	defer mon.Task()(&ctx)(&err)

	if secret == "" {
		return nil, ErrUnauthorized.New("Authentication required")
	}

	key, err := s.store.APIKeys().GetByHash(ctx, consoleauth.HashSecret(secret))
	if err != nil {
		if ErrNotFound.Has(err) {
			return nil, ErrUnauthorized.New("Authentication required")
		}
		return nil, Error.Wrap(err)
	}

	if err := s.store.APIKeys().TouchLastUsed(ctx, key.ID, time.Now().UTC()); err != nil {
		s.log.Warn("touching api key failed", zap.Stringer("key", key.ID), zap.Error(err))
	}

	user, err := s.store.Users().Get(ctx, key.UserID)
	if err != nil {
		if ErrNotFound.Has(err) {
			return nil, ErrUnauthorized.New("Authentication required")
		}
		return nil, Error.Wrap(err)
	}
	return user, nil
}

// CreateAPIKey generates a key for a user and returns the plaintext
// secret exactly once.
func (s *Service) CreateAPIKey(ctx context.Context, userID uuid.UUID, name string) (secret string, _ *APIKey, err error) {
	defer mon.Task()(&ctx)(&err)

	secret, err = consoleauth.NewSecret()
	if err != nil {
		return "", nil, Error.Wrap(err)
	}
	key, err := s.store.APIKeys().Insert(ctx, &APIKey{
		ID:      uuid.New(),
		UserID:  userID,
		KeyHash: consoleauth.HashSecret(secret),
		Name:    name,
	})
	if err != nil {
		return "", nil, Error.Wrap(err)
	}
	return secret, key, nil
}

// CreateProfile creates a profile after validating the slug grammar and
// per-user uniqueness.
func (s *Service) CreateProfile(ctx context.Context, user *User, req CreateProfile) (_ *Profile, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := s.validate.Struct(req); err != nil {
		return nil, ErrValidation.Wrap(err)
	}
	if !ValidSlug(req.Slug) {
		return nil, ErrValidation.New("slug must be lowercase alphanumeric or dashes, at least 3 characters")
	}

	existing, err := s.store.Profiles().GetBySlug(ctx, user.ID, req.Slug)
	if err != nil && !ErrNotFound.Has(err) {
		return nil, Error.Wrap(err)
	}
	if existing != nil {
		return nil, ErrConflict.New("slug %q already in use", req.Slug)
	}

	profile, err := s.store.Profiles().Insert(ctx, &Profile{
		ID:          uuid.New(),
		UserID:      user.ID,
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		Theme:       req.Theme,
	})
	return profile, Error.Wrap(err)
}

// GetProfiles returns all profiles of a user.
func (s *Service) GetProfiles(ctx context.Context, user *User) (_ []Profile, err error) {
	defer mon.Task()(&ctx)(&err)
	profiles, err := s.store.Profiles().ListByUser(ctx, user.ID)
	return profiles, Error.Wrap(err)
}

// GetProfileBySlug returns the user's profile with the given slug.
// Profiles of other users are indistinguishable from missing ones.
func (s *Service) GetProfileBySlug(ctx context.Context, user *User, slug string) (_ *Profile, err error) {
	defer mon.Task()(&ctx)(&err)
	profile, err := s.store.Profiles().GetBySlug(ctx, user.ID, slug)
	if err != nil {
		if ErrNotFound.Has(err) {
			return nil, ErrNotFound.New("profile")
		}
		return nil, Error.Wrap(err)
	}
	return profile, nil
}

// UpdateProfile applies a partial update to an owned profile.
func (s *Service) UpdateProfile(ctx context.Context, user *User, profileID uuid.UUID, updates UpdateProfile) (err error) {
	defer mon.Task()(&ctx)(&err)

	if _, err := s.ownedProfile(ctx, user, profileID); err != nil {
		return err
	}
	return Error.Wrap(s.store.Profiles().Update(ctx, profileID, updates))
}

// DeleteProfile deletes a profile and cascades through every bound
// account, including their corpus stores.
func (s *Service) DeleteProfile(ctx context.Context, user *User, profileID uuid.UUID) (err error) {
	defer mon.Task()(&ctx)(&err)

	if _, err := s.ownedProfile(ctx, user, profileID); err != nil {
		return err
	}
	accounts, err := s.store.Accounts().ListByProfile(ctx, profileID)
	if err != nil {
		return Error.Wrap(err)
	}
	for _, account := range accounts {
		if _, err := s.DeleteAccount(ctx, user, account.ID); err != nil {
			return err
		}
	}
	return Error.Wrap(s.store.Profiles().Delete(ctx, profileID))
}

// AccountInfo is an account with its settings attached on request.
type AccountInfo struct {
	Account
	Settings map[string]string `json:"settings,omitempty"`
}

// GetAccounts lists the accounts of an owned profile, optionally with
// their settings.
func (s *Service) GetAccounts(ctx context.Context, user *User, profileID uuid.UUID, includeSettings bool) (_ []AccountInfo, err error) {
	defer mon.Task()(&ctx)(&err)

	if _, err := s.ownedProfile(ctx, user, profileID); err != nil {
		return nil, err
	}
	accounts, err := s.store.Accounts().ListByProfile(ctx, profileID)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	infos := make([]AccountInfo, 0, len(accounts))
	for _, account := range accounts {
		info := AccountInfo{Account: account}
		if includeSettings {
			settings, err := s.store.AccountSettings().Get(ctx, account.ID)
			if err != nil {
				return nil, Error.Wrap(err)
			}
			info.Settings = settings
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// CreateAccount encrypts the supplied tokens and binds a new active
// account to an owned profile.
func (s *Service) CreateAccount(ctx context.Context, user *User, req CreateAccount) (_ *Account, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := s.validate.Struct(req); err != nil {
		return nil, ErrValidation.Wrap(err)
	}
	platform, err := platforms.Parse(req.Platform)
	if err != nil {
		return nil, ErrValidation.New("unknown platform %q", req.Platform)
	}
	if _, err := s.ownedProfile(ctx, user, req.ProfileID); err != nil {
		return nil, err
	}

	accessEnc, err := encryption.Encrypt([]byte(req.AccessToken), s.key)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	var refreshEnc []byte
	if req.RefreshToken != "" {
		refreshEnc, err = encryption.Encrypt([]byte(req.RefreshToken), s.key)
		if err != nil {
			return nil, Error.Wrap(err)
		}
	}

	account, err := s.store.Accounts().Insert(ctx, &Account{
		ID:                    uuid.New(),
		ProfileID:             req.ProfileID,
		Platform:              platform,
		PlatformUserID:        req.PlatformUserID,
		PlatformUsername:      req.PlatformUsername,
		AccessTokenEncrypted:  accessEnc,
		RefreshTokenEncrypted: refreshEnc,
		TokenExpiresAt:        req.TokenExpiresAt,
		IsActive:              true,
	})
	return account, Error.Wrap(err)
}

// UpdateAccount applies a partial update to an owned account.
func (s *Service) UpdateAccount(ctx context.Context, user *User, accountID uuid.UUID, updates UpdateAccount) (err error) {
	defer mon.Task()(&ctx)(&err)

	if _, err := s.OwnedAccount(ctx, user, accountID); err != nil {
		return err
	}
	return Error.Wrap(s.store.Accounts().Update(ctx, accountID, updates))
}

// DeleteAccountResult reports what an account deletion cascade removed.
type DeleteAccountResult struct {
	Deleted       bool        `json:"deleted"`
	AccountID     uuid.UUID   `json:"account_id"`
	Platform      string      `json:"platform"`
	DeletedStores []string    `json:"deleted_stores"`
	AffectedUsers []uuid.UUID `json:"affected_users"`
}

// DeleteAccount removes an owned account and everything hanging off it:
// the gate state, settings, filters, the account row, and every snapshot
// in every platform-scoped corpus store. Timeline reassembly is queued
// for each affected user.
func (s *Service) DeleteAccount(ctx context.Context, user *User, accountID uuid.UUID) (_ *DeleteAccountResult, err error) {
	defer mon.Task()(&ctx)(&err)

	account, err := s.OwnedAccount(ctx, user, accountID)
	if err != nil {
		return nil, err
	}

	storeAccount := account.ID.String()
	var deletedStores []string
	for _, prefix := range corpus.AccountStorePrefixes(string(account.Platform), storeAccount) {
		ids, err := s.backend.Index().Stores(ctx, prefix)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		for _, id := range ids {
			// Prefix matches can overrun the account segment; only wipe
			// stores whose parsed account is exactly ours.
			parsed, err := corpus.ParseStoreID(id)
			if err != nil || parsed.Account != storeAccount {
				continue
			}
			if _, err := corpus.WipeStore(ctx, s.backend, id); err != nil {
				return nil, Error.Wrap(err)
			}
			deletedStores = append(deletedStores, id)
		}
	}

	err = errs.Combine(
		s.store.RateLimits().Delete(ctx, accountID),
		s.store.AccountSettings().Delete(ctx, accountID),
		s.store.ProfileFilters().DeleteByAccount(ctx, accountID),
		s.store.Accounts().Delete(ctx, accountID),
	)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	affected := []uuid.UUID{user.ID}
	if s.reassemble != nil {
		for _, userID := range affected {
			s.reassemble(ctx, userID)
		}
	}

	return &DeleteAccountResult{
		Deleted:       true,
		AccountID:     accountID,
		Platform:      string(account.Platform),
		DeletedStores: deletedStores,
		AffectedUsers: affected,
	}, nil
}

// DecryptAccessToken returns the plaintext access token of an account
// for provider fetches. Never exposed over HTTP.
func (s *Service) DecryptAccessToken(ctx context.Context, account *Account) (_ string, err error) {
	defer mon.Task()(&ctx)(&err)
	plaintext, err := encryption.Decrypt(account.AccessTokenEncrypted, s.key)
	if err != nil {
		return "", Error.Wrap(err)
	}
	return string(plaintext), nil
}

// GetAccountSettings returns the settings of an owned account.
func (s *Service) GetAccountSettings(ctx context.Context, user *User, accountID uuid.UUID) (_ map[string]string, err error) {
	defer mon.Task()(&ctx)(&err)

	if _, err := s.OwnedAccount(ctx, user, accountID); err != nil {
		return nil, err
	}
	settings, err := s.store.AccountSettings().Get(ctx, accountID)
	return settings, Error.Wrap(err)
}

// UpdateAccountSettings upserts each given key on an owned account.
func (s *Service) UpdateAccountSettings(ctx context.Context, user *User, accountID uuid.UUID, settings map[string]string) (err error) {
	defer mon.Task()(&ctx)(&err)

	if _, err := s.OwnedAccount(ctx, user, accountID); err != nil {
		return err
	}
	if len(settings) == 0 {
		return ErrValidation.New("empty settings body")
	}
	return Error.Wrap(s.store.AccountSettings().Upsert(ctx, accountID, settings))
}

// GetFilters lists the filters of an owned profile.
func (s *Service) GetFilters(ctx context.Context, user *User, profileID uuid.UUID) (_ []ProfileFilter, err error) {
	defer mon.Task()(&ctx)(&err)

	if _, err := s.ownedProfile(ctx, user, profileID); err != nil {
		return nil, err
	}
	filters, err := s.store.ProfileFilters().ListByProfile(ctx, profileID)
	return filters, Error.Wrap(err)
}

// CreateFilter adds a filter to an owned profile. The referenced account
// must exist and belong to the same user.
func (s *Service) CreateFilter(ctx context.Context, user *User, profileID uuid.UUID, req CreateFilter) (_ *ProfileFilter, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := s.validate.Struct(req); err != nil {
		return nil, ErrValidation.Wrap(err)
	}
	if !ValidFilterType(req.FilterType) {
		return nil, ErrValidation.New("unknown filter type %q", req.FilterType)
	}
	if !ValidFilterKey(req.FilterKey) {
		return nil, ErrValidation.New("unknown filter key %q", req.FilterKey)
	}
	if _, err := s.ownedProfile(ctx, user, profileID); err != nil {
		return nil, err
	}

	account, err := s.store.Accounts().Get(ctx, req.AccountID)
	if err != nil {
		if ErrNotFound.Has(err) {
			return nil, ErrNotFound.New("account")
		}
		return nil, Error.Wrap(err)
	}
	owner, err := s.store.Accounts().Owner(ctx, account.ID)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if owner != user.ID {
		return nil, ErrForbidden.New("account belongs to another user")
	}

	filter, err := s.store.ProfileFilters().Insert(ctx, &ProfileFilter{
		ID:          uuid.New(),
		ProfileID:   profileID,
		AccountID:   req.AccountID,
		FilterType:  req.FilterType,
		FilterKey:   req.FilterKey,
		FilterValue: req.FilterValue,
	})
	return filter, Error.Wrap(err)
}

// DeleteFilter removes a filter from an owned profile.
func (s *Service) DeleteFilter(ctx context.Context, user *User, profileID, filterID uuid.UUID) (err error) {
	defer mon.Task()(&ctx)(&err)

	if _, err := s.ownedProfile(ctx, user, profileID); err != nil {
		return err
	}
	filter, err := s.store.ProfileFilters().Get(ctx, filterID)
	if err != nil {
		if ErrNotFound.Has(err) {
			return ErrNotFound.New("filter")
		}
		return Error.Wrap(err)
	}
	if filter.ProfileID != profileID {
		return ErrNotFound.New("filter")
	}
	return Error.Wrap(s.store.ProfileFilters().Delete(ctx, filterID))
}

// GetCredentials returns the stored OAuth app credentials of an owned
// profile for one platform. The secret stays encrypted.
func (s *Service) GetCredentials(ctx context.Context, user *User, profileID uuid.UUID, platform platforms.Platform) (_ *PlatformCredentials, err error) {
	defer mon.Task()(&ctx)(&err)

	if _, err := s.ownedProfile(ctx, user, profileID); err != nil {
		return nil, err
	}
	creds, err := s.store.Credentials().Get(ctx, profileID, platform)
	if err != nil {
		if ErrNotFound.Has(err) {
			return nil, ErrNotFound.New("credentials")
		}
		return nil, Error.Wrap(err)
	}
	return creds, nil
}

// UpsertCredentials stores OAuth app credentials for (profile, platform),
// encrypting the client secret. Reddit script apps carry extra shape
// requirements.
func (s *Service) UpsertCredentials(ctx context.Context, user *User, profileID uuid.UUID, platform platforms.Platform, req UpsertCredentials) (_ *PlatformCredentials, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := s.validate.Struct(req); err != nil {
		return nil, ErrValidation.Wrap(err)
	}
	if platform == platforms.Reddit {
		switch {
		case req.RedditUsername == "":
			return nil, ErrValidation.New("reddit_username is required")
		case len(req.ClientID) < redditClientIDMinLen:
			return nil, ErrValidation.New("client_id must be at least %d characters", redditClientIDMinLen)
		case len(req.ClientSecret) < redditClientSecretMinLen:
			return nil, ErrValidation.New("client_secret must be at least %d characters", redditClientSecretMinLen)
		}
	}
	if _, err := s.ownedProfile(ctx, user, profileID); err != nil {
		return nil, err
	}

	secretEnc, err := encryption.Encrypt([]byte(req.ClientSecret), s.key)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	creds, err := s.store.Credentials().Upsert(ctx, &PlatformCredentials{
		ID:                    uuid.New(),
		ProfileID:             profileID,
		Platform:              platform,
		ClientID:              req.ClientID,
		ClientSecretEncrypted: secretEnc,
		RedirectURI:           req.RedirectURI,
		RedditUsername:        req.RedditUsername,
		Metadata:              req.Metadata,
	})
	return creds, Error.Wrap(err)
}

// DeleteCredentials removes the credentials of (profile, platform).
func (s *Service) DeleteCredentials(ctx context.Context, user *User, profileID uuid.UUID, platform platforms.Platform) (err error) {
	defer mon.Task()(&ctx)(&err)

	if _, err := s.ownedProfile(ctx, user, profileID); err != nil {
		return err
	}
	return Error.Wrap(s.store.Credentials().Delete(ctx, profileID, platform))
}

// ownedProfile loads a profile and verifies ownership. Missing profiles
// map to not found; foreign profiles map to forbidden.
func (s *Service) ownedProfile(ctx context.Context, user *User, profileID uuid.UUID) (*Profile, error) {
	profile, err := s.store.Profiles().Get(ctx, profileID)
	if err != nil {
		if ErrNotFound.Has(err) {
			return nil, ErrNotFound.New("profile")
		}
		return nil, Error.Wrap(err)
	}
	if profile.UserID != user.ID {
		return nil, ErrForbidden.New("profile belongs to another user")
	}
	return profile, nil
}

// OwnedAccount loads an account and verifies the caller owns it through
// its profile.
func (s *Service) OwnedAccount(ctx context.Context, user *User, accountID uuid.UUID) (*Account, error) {
	account, err := s.store.Accounts().Get(ctx, accountID)
	if err != nil {
		if ErrNotFound.Has(err) {
			return nil, ErrNotFound.New("account")
		}
		return nil, Error.Wrap(err)
	}
	owner, err := s.store.Accounts().Owner(ctx, account.ID)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if owner != user.ID {
		return nil, ErrForbidden.New("account belongs to another user")
	}
	return account, nil
}
