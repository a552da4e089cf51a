package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	toolserver "github.com/noah-isme/campus-tools/internal/mcp"
	"github.com/noah-isme/campus-tools/internal/models"
	"github.com/noah-isme/campus-tools/internal/repository"
	"github.com/noah-isme/campus-tools/internal/service"
	"github.com/noah-isme/campus-tools/pkg/config"
)

const initializeBody = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"router-test","version":"1"}}}`

func newMCPRouter(t *testing.T, auth config.AuthConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := repository.NewMemoryLeaveRepository(models.DefaultLeaveAccounts())
	srv := toolserver.NewServer(toolserver.Options{
		Name:    "campus-tools",
		Version: "test",
		Leave:   service.NewLeaveService(repo, nil, nil, nil),
	})
	return NewRouter(RouterConfig{
		MCP:  toolserver.NewHTTPHandler(srv, nil),
		Auth: service.NewAuthService(auth, nil),
	})
}

func postMCP(r http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(initializeBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterConfig{})

	rec := doRequest(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = doRequest(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouterReadyReportsFailingCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	checks := map[string]ReadinessCheck{
		"redis":    func(context.Context) error { return nil },
		"postgres": func(context.Context) error { return errors.New("connection refused") },
	}
	r := NewRouter(RouterConfig{Observability: NewMetricsHandler(nil, checks)})

	rec := doRequest(r, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"not_ready","checks":{"redis":"ok","postgres":"connection refused"}}`, rec.Body.String())
}

func TestRouterReadyWithoutChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterConfig{})

	rec := doRequest(r, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{}}`, rec.Body.String())
}

func TestRouterMetricsScrape(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := NewRouter(RouterConfig{Metrics: metrics})

	doRequest(r, http.MethodGet, "/health", "")
	rec := doRequest(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/health",status="200"} 1`)
}

func TestRouterMountsMCP(t *testing.T) {
	r := newMCPRouter(t, config.AuthConfig{})

	rec := postMCP(r, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Mcp-Session-Id"))
	assert.Contains(t, rec.Body.String(), `"campus-tools"`)
}

func TestRouterGuardsMCPWithAuth(t *testing.T) {
	cfg := config.AuthConfig{Enabled: true, Secret: "s3cret"}
	r := newMCPRouter(t, cfg)

	rec := postMCP(r, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := service.NewAuthService(cfg, nil).IssueToken("agent", nil, time.Minute)
	require.NoError(t, err)
	rec = postMCP(r, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, rec.Code)
}
