package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *MetricsService) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetricsToolCalls(t *testing.T) {
	m := NewMetricsService()

	m.ObserveToolCall("apply_leave", "ok", 10*time.Millisecond)
	m.ObserveToolCall("apply_leave", "ok", 5*time.Millisecond)
	m.ObserveToolCall("search_courses", "error", time.Second)

	body := scrape(t, m)
	assert.Contains(t, body, `mcp_tool_calls_total{outcome="ok",tool="apply_leave"} 2`)
	assert.Contains(t, body, `mcp_tool_calls_total{outcome="error",tool="search_courses"} 1`)
}

func TestMetricsCacheCounters(t *testing.T) {
	m := NewMetricsService()

	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, "cache_hits_total 2")
	assert.Contains(t, body, "cache_misses_total 1")
	assert.Contains(t, body, "cache_hit_ratio 0.6666")
}

func TestMetricsHandlerExposesRegistry(t *testing.T) {
	m := NewMetricsService()
	m.AddLeaveDays(2)
	m.ObserveUpstream("search", "200", 30*time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, "leave_days_applied_total 2")
	assert.Contains(t, body, `course_api_request_duration_seconds_count{endpoint="search",status="200"} 1`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveToolCall("x", "ok", time.Millisecond)
	m.AddLeaveDays(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
