//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"go-ecoforum/internal/config"
	"go-ecoforum/internal/database"
	"go-ecoforum/internal/event"
	"go-ecoforum/internal/handler"
	"go-ecoforum/internal/middleware"
	"go-ecoforum/internal/model"
	"go-ecoforum/internal/repository"
	"go-ecoforum/internal/router"
	"go-ecoforum/internal/service"
	"go-ecoforum/internal/testutil"
	"go-ecoforum/internal/websocket"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *model.Meta `json:"meta"`
}

// newServer wires the full HTTP stack over a fresh database.
func newServer(t *testing.T) (*httptest.Server, *pgxpool.Pool) {
	t.Helper()

	pool := testutil.SetupTestDB(t)

	cfg := &config.Config{
		RequestTimeout:     10 * time.Second,
		CORSOrigins:        []string{"*"},
		RateLimitRPM:       1000,
		ReportRateLimitRPM: 1000,
		DefaultPageSize:    20,
		MaxPageSize:        100,
		SoftDeleteTables:   []string{"threads", "articles", "tutorials"},
	}
	paging := model.PageLimits{Default: cfg.DefaultPageSize, Max: cfg.MaxPageSize}

	entities, err := repository.NewEntityRepository(pool, cfg.SoftDeleteTables)
	require.NoError(t, err)
	threads := repository.NewThreadRepository(pool)
	comments := repository.NewCommentRepository(pool)

	bus := event.NewBus()
	hub := websocket.NewHub(bus)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	clock := service.RealClock{}
	recycleService := service.NewRecycleService(database.NewTxManager(pool), repository.NewRecycleRepository(pool), entities, bus, clock)
	reportService := service.NewReportService(repository.NewReportRepository(pool), threads, comments, bus, clock)
	commentService := service.NewCommentService(comments, threads, bus, clock)
	auditService := service.NewAuditService(repository.NewAuditRepository(pool), clock)
	authorizer := service.NewAuthorizer(comments, entities)

	server := httptest.NewServer(router.New(cfg, middleware.NewAuthMiddleware(service.NewTokenService(testutil.TestJWTSecret)), router.Handlers{
		Recycle: handler.NewRecycleHandler(recycleService, authorizer, auditService, paging),
		Report:  handler.NewReportHandler(reportService, authorizer, auditService, paging),
		Comment: handler.NewCommentHandler(commentService, authorizer, auditService, paging),
		Audit:   handler.NewAuditHandler(auditService, authorizer, paging),
		Feed:    handler.NewFeedHandler(hub, authorizer, cfg.CORSOrigins),
		Health:  handler.NewHealthHandler(pool),
	}))
	t.Cleanup(server.Close)

	return server, pool
}

func seedThread(t *testing.T, pool *pgxpool.Pool, authorID int64, title string) int64 {
	t.Helper()

	id, err := repository.NewThreadRepository(pool).Create(context.Background(), authorID, title, "")
	require.NoError(t, err)
	return id
}

func seedArticle(t *testing.T, pool *pgxpool.Pool, authorID int64, title string) int64 {
	t.Helper()

	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO articles (author_id, title, body, status) VALUES ($1, $2, 'body', 'PUBLISHED') RETURNING id`,
		authorID, title).Scan(&id)
	require.NoError(t, err)
	return id
}

func newAuthRequest(t *testing.T, method string, url string, body any, accessToken string) *http.Request {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	require.NoError(t, err)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// doAuthJSONRequest sends the request and decodes the response envelope. A 204
// comes back with an empty envelope.
func doAuthJSONRequest(t *testing.T, method string, url string, body any, accessToken string) (int, envelope) {
	t.Helper()

	resp, err := http.DefaultClient.Do(newAuthRequest(t, method, url, body, accessToken))
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func mustField(t *testing.T, raw json.RawMessage, name string) json.RawMessage {
	t.Helper()

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	value, ok := fields[name]
	require.True(t, ok, "field %q missing", name)
	return value
}
