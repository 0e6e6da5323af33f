package app_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourguide/tourguide-api/internal/app"
	"github.com/tourguide/tourguide-api/internal/auth"
	"github.com/tourguide/tourguide-api/internal/observability"
	"github.com/tourguide/tourguide-api/internal/rbac"
	"github.com/tourguide/tourguide-api/internal/users"
	_ "github.com/tourguide/tourguide-api/testing"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := &app.Config{
		AppEnv:            "test",
		AccessTokenSecret: "router-test-secret",
		StoreDriver:       app.StoreRedis,
		RedisAddr:         mr.Addr(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo, closeStore, err := app.OpenAccountStore(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeStore(context.Background()) })

	issuer, err := auth.NewIssuer([]byte(cfg.AccessTokenSecret))
	require.NoError(t, err)
	verifier, err := auth.NewVerifier([]byte(cfg.AccessTokenSecret))
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	service := users.NewService(repo, users.ServiceConfig{StoreTimeout: cfg.StoreTimeout})
	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		AuthHandler: auth.NewHandler(logger, issuer),
		UsersHandler: users.NewHandler(logger, service,
			auth.Middleware{Verifier: verifier, Logger: logger, Recorder: metrics},
			rbac.Middleware{Resolver: service, Logger: logger, Recorder: metrics},
		),
		Metrics: metrics,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, token, body string) (*http.Response, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(raw)
}

func TestBootstrapEnablesTestMode(t *testing.T) {
	assert.True(t, app.InTestMode())
}

func TestRootAndHealth(t *testing.T) {
	srv := newServer(t)

	res, body := call(t, srv, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Tourist Guide is running", body)
	assert.Equal(t, "nosniff", res.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, res.Header.Get("X-Frame-Options"))

	res, body = call(t, srv, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestLoginFlowThroughRouter(t *testing.T) {
	srv := newServer(t)

	res, _ := call(t, srv, http.MethodPost, "/users", "", `{"email":"a@x.com","name":"Ayesha"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, body := call(t, srv, http.MethodPost, "/jwt", "", `{"email":"a@x.com"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var issued struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &issued))

	res, body = call(t, srv, http.MethodGet, "/users/tourist/a@x.com", issued.Token, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"tourist":true}`, body)

	res, _ = call(t, srv, http.MethodGet, "/users/tourist/b@x.com", issued.Token, "")
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, _ = call(t, srv, http.MethodGet, "/users", issued.Token, "")
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, body = call(t, srv, http.MethodGet, "/users", "", "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Contains(t, body, "unauthorized access")

	_, metricsBody := call(t, srv, http.MethodGet, "/metrics", "", "")
	assert.Contains(t, metricsBody, `tourguide_auth_rejections_total{reason="forbidden"} 2`)
	assert.Contains(t, metricsBody, `tourguide_auth_rejections_total{reason="unauthenticated"} 1`)
}

func TestRateLimitedRequestsAreCounted(t *testing.T) {
	metrics := observability.NewMetrics()
	router := app.NewRouter(app.RouterParams{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:  &app.Config{AppEnv: "test", RateLimit: 2},
		Metrics: metrics,
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "192.0.2.10:4321"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rr.Body.String(), `code="429"`)
	assert.Contains(t, rr.Body.String(), `code="200",route="/healthz"} 2`)
}
