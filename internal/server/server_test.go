package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/session"
)

func testConfig(backendURL string) *config.Config {
	return &config.Config{
		AppName:               "clover-test",
		Version:               "test",
		Port:                  0,
		BackendBaseURL:        backendURL,
		BackendTimeout:        time.Second,
		DiscordCDN:            "https://cdn.discordapp.com/",
		SessionStore:          "memory",
		SessionTTL:            time.Hour,
		CommunityNameDebounce: time.Second,
		AllowOrigins:          []string{"*"},
		AllowMethods:          []string{"GET", "POST", "PUT", "DELETE"},
		StartupMaxAttempts:    1,
	}
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/communities/c1", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "c1", "name": "Acme DAO"})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func serve(t *testing.T, h http.Handler, method, path, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if userID != "" {
		req.Header.Set(middleware.HeaderUserID, userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_MemorySessions(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	s := New(testConfig(newBackend(t).URL), logger)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	h := s.Handler()

	rec := serve(t, h, http.MethodGet, "/api/v1/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, h, http.MethodGet, "/api/v1/registry/hivemind", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, h, http.MethodGet, "/api/v1/registry/hivemind", "u1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestServer_RedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := testConfig(newBackend(t).URL)
	cfg.SessionStore = "redis"
	cfg.RedisHost = mr.Host()
	cfg.RedisPort = port

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	s := New(cfg, logger)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	req := httptest.NewRequest(http.MethodPut, "/api/v1/session/community", strings.NewReader(`{}`))
	req.Header.Set(middleware.HeaderUserID, "u1")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/v1/session/community", strings.NewReader(`{"id":"c1"}`))
	req.Header.Set(middleware.HeaderUserID, "u1")
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.True(t, mr.Exists(session.CommunityKey("u1")))

	rec = serve(t, s.Handler(), http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestServer_StartFailsWithoutRedis(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.SessionStore = "redis"
	cfg.RedisHost = "127.0.0.1"
	cfg.RedisPort = 1

	s := New(cfg, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	assert.Error(t, s.Start(context.Background()))
}
