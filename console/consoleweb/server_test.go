// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package consoleweb_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chroniclehq/chronicle/assemble"
	"github.com/chroniclehq/chronicle/chronicledb"
	"github.com/chroniclehq/chronicle/chronicledb/chronicledbtest"
	"github.com/chroniclehq/chronicle/console"
	"github.com/chroniclehq/chronicle/console/consoleweb"
	"github.com/chroniclehq/chronicle/corpus"
	"github.com/chroniclehq/chronicle/corpus/memback"
	"github.com/chroniclehq/chronicle/encryption"
	"github.com/chroniclehq/chronicle/ingest"
	"github.com/chroniclehq/chronicle/internal/testcontext"
	"github.com/chroniclehq/chronicle/platforms"
	"github.com/chroniclehq/chronicle/platforms/github"
	"github.com/chroniclehq/chronicle/platforms/testplatform"
	"github.com/chroniclehq/chronicle/refresh"
)

type web struct {
	baseURL   string
	client    *http.Client
	db        *chronicledb.DB
	backend   corpus.Backend
	service   *console.Service
	assembler *assemble.Service

	user   *console.User
	secret string
}

func startServer(ctx *testcontext.Context, t *testing.T, db *chronicledb.DB) *web {
	t.Helper()
	log := zaptest.NewLogger(t)
	backend := memback.New()

	key, err := encryption.NewKey()
	require.NoError(t, err)

	service, err := console.NewService(log, db, backend, key, nil)
	require.NoError(t, err)
	assembler := assemble.NewService(log, db, backend)

	platform := testplatform.New()
	ingester := ingest.NewService(log, ingest.Config{}, db, backend, key, ingest.Providers{
		GitHub:  platform.GitHub(),
		Reddit:  platform.Reddit(),
		Twitter: platform.Twitter(),
		Bluesky: platform.Bluesky(),
		YouTube: platform.YouTube(),
		Devpad:  platform.Devpad(),
	})
	refresher := refresh.NewService(log, db, ingester, assembler, nil)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := consoleweb.NewServer(log, consoleweb.Config{
		AllowedOrigins:  []string{"*"},
		ShutdownTimeout: time.Second,
	}, listener, service, assembler, refresher)

	serverCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ctx.Go(func() error { return server.Run(serverCtx) })

	user, err := db.Users().Insert(ctx, &console.User{ID: uuid.New(), Name: "Alice"})
	require.NoError(t, err)
	secret, _, err := service.CreateAPIKey(ctx, user.ID, "test")
	require.NoError(t, err)

	return &web{
		baseURL:   "http://" + listener.Addr().String(),
		client:    &http.Client{Timeout: 10 * time.Second},
		db:        db,
		backend:   backend,
		service:   service,
		assembler: assembler,
		user:      user,
		secret:    secret,
	}
}

func (w *web) request(t *testing.T, method, path, secret string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, w.baseURL+path, reader)
	require.NoError(t, err)
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := w.client.Do(req)
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

// seedTimeline writes commits on the given days and assembles once.
func (w *web) seedTimeline(ctx *testcontext.Context, t *testing.T, days ...int) {
	t.Helper()
	profile, err := w.db.Profiles().Insert(ctx, &console.Profile{
		ID:     uuid.New(),
		UserID: w.user.ID,
		Slug:   "work",
		Name:   "Work",
	})
	require.NoError(t, err)
	account, err := w.db.Accounts().Insert(ctx, &console.Account{
		ID:                   uuid.New(),
		ProfileID:            profile.ID,
		Platform:             platforms.GitHub,
		AccessTokenEncrypted: []byte("sealed"),
		IsActive:             true,
	})
	require.NoError(t, err)

	storeAccount := account.ID.String()
	metaStore := corpus.NewStore(w.backend,
		corpus.GitHubMetaStoreID(storeAccount),
		corpus.NewJSONCodec[github.Meta]())
	_, err = metaStore.Put(ctx, github.Meta{Login: "alice", Repos: []string{"alice/work-project"}}, nil)
	require.NoError(t, err)

	var commits []github.Commit
	for _, day := range days {
		commits = append(commits, github.Commit{
			SHA:        uuid.NewString()[:8],
			Message:    "change",
			Branch:     "main",
			AuthorDate: time.Date(2024, 1, day, 12, 0, 0, 0, time.UTC),
		})
	}
	store := corpus.NewStore(w.backend,
		corpus.GitHubCommitsStoreID(storeAccount, "alice", "work-project"),
		corpus.NewJSONCodec[github.CommitHistory]())
	_, err = store.Put(ctx, github.CommitHistory{Repo: "alice/work-project", Commits: commits}, nil)
	require.NoError(t, err)

	_, err = w.assembler.AssembleUser(ctx, w.user.ID)
	require.NoError(t, err)
}

func TestTimelineEndpointAuth(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		w := startServer(ctx, t, db)
		path := "/api/v1/timeline/" + w.user.ID.String()

		resp, body := w.request(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Unauthorized", body["error"])
		assert.Equal(t, "Authentication required", body["message"])

		other, err := db.Users().Insert(ctx, &console.User{ID: uuid.New(), Name: "Mallory"})
		require.NoError(t, err)
		otherSecret, _, err := w.service.CreateAPIKey(ctx, other.ID, "other")
		require.NoError(t, err)

		resp, body = w.request(t, http.MethodGet, path, otherSecret, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "Forbidden", body["error"])
		assert.Equal(t, "Cannot access other user timelines", body["message"])

		resp, body = w.request(t, http.MethodGet, path, w.secret, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Not found", body["error"])
		assert.Equal(t, "Resource not found: timeline", body["message"])
	})
}

func TestTimelineEndpointDateRange(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		w := startServer(ctx, t, db)
		w.seedTimeline(ctx, t, 1, 2, 3, 4, 5)

		path := "/api/v1/timeline/" + w.user.ID.String() + "?from=2024-01-02&to=2024-01-04"
		resp, body := w.request(t, http.MethodGet, path, w.secret, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		groups, ok := body["groups"].([]any)
		require.True(t, ok)
		var dates []string
		for _, raw := range groups {
			group, ok := raw.(map[string]any)
			require.True(t, ok)
			dates = append(dates, group["date"].(string))
		}
		assert.Equal(t, []string{"2024-01-04", "2024-01-03", "2024-01-02"}, dates)
	})
}

func TestProfileEndpoints(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		w := startServer(ctx, t, db)

		resp, body := w.request(t, http.MethodPost, "/api/v1/profiles", w.secret, map[string]any{
			"slug": "work", "name": "Work",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "work", body["slug"])

		resp, body = w.request(t, http.MethodPost, "/api/v1/profiles", w.secret, map[string]any{
			"slug": "work", "name": "Duplicate",
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "Conflict", body["error"])

		resp, body = w.request(t, http.MethodPost, "/api/v1/profiles", w.secret, map[string]any{
			"slug": "Bad Slug!", "name": "Broken",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Bad request", body["error"])
	})
}

func TestProfileTimelineLimitValidation(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		w := startServer(ctx, t, db)

		resp, _ := w.request(t, http.MethodPost, "/api/v1/profiles", w.secret, map[string]any{
			"slug": "work", "name": "Work",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp, body := w.request(t, http.MethodGet, "/api/v1/profiles/work/timeline?limit=0", w.secret, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Bad request", body["error"])

		resp, body = w.request(t, http.MethodGet, "/api/v1/profiles/work/timeline?limit=201", w.secret, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp, body = w.request(t, http.MethodGet, "/api/v1/profiles/work/timeline?before=not-a-date", w.secret, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp, _ = w.request(t, http.MethodGet, "/api/v1/profiles/missing/timeline", w.secret, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestHealthEndpointUnauthenticated(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		w := startServer(ctx, t, db)

		resp, body := w.request(t, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", body["status"])
	})
}

func TestConnectionsCRUD(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		w := startServer(ctx, t, db)

		resp, profileBody := w.request(t, http.MethodPost, "/api/v1/profiles", w.secret, map[string]any{
			"slug": "work", "name": "Work",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		profileID := profileBody["id"].(string)

		resp, body := w.request(t, http.MethodPost, "/api/v1/connections", w.secret, map[string]any{
			"profile_id":   profileID,
			"platform":     "github",
			"access_token": "gh-token",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		accountID := body["account_id"].(string)

		resp, body = w.request(t, http.MethodGet, "/api/v1/connections?profile_id="+profileID, w.secret, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		accounts := body["accounts"].([]any)
		require.Len(t, accounts, 1)

		resp, _ = w.request(t, http.MethodGet, "/api/v1/connections", w.secret, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp, body = w.request(t, http.MethodDelete, "/api/v1/connections/"+accountID, w.secret, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["deleted"])

		resp, _ = w.request(t, http.MethodGet, "/api/v1/connections?profile_id="+profileID, w.secret, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
