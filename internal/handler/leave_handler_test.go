package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-tools/internal/models"
	"github.com/noah-isme/campus-tools/internal/repository"
	"github.com/noah-isme/campus-tools/internal/service"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func newLeaveRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := repository.NewMemoryLeaveRepository(models.DefaultLeaveAccounts())
	leave := service.NewLeaveService(repo, nil, nil, nil)
	exporter := service.NewExportService(repo, nil)
	return NewRouter(RouterConfig{
		APIPrefix: "/api/v1",
		Leave:     NewLeaveHandler(leave, exporter),
	})
}

func doRequest(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestLeaveHandlerBalance(t *testing.T) {
	r := newLeaveRouter(t)

	rec := doRequest(r, http.MethodGet, "/api/v1/employees/E001/leave-balance", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "E001 has 18 leave days remaining.", envelope.Data["message"])
	assert.Equal(t, float64(18), envelope.Data["balance"])

	rec = doRequest(r, http.MethodGet, "/api/v1/employees/E999/leave-balance", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	envelope = decodeEnvelope(t, rec)
	assert.Equal(t, "not_found", envelope.Data["status"])
	assert.Equal(t, "Employee ID E999 not found.", envelope.Data["message"])
}

func TestLeaveHandlerApplyAndHistory(t *testing.T) {
	r := newLeaveRouter(t)

	rec := doRequest(r, http.MethodPost, "/api/v1/employees/E002/leaves", `{"leave_dates":["2025-03-03","2025-03-04"]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "Leave applied for 2 day(s). Remaining balance: 18.", envelope.Data["message"])

	rec = doRequest(r, http.MethodGet, "/api/v1/employees/E002/leave-history", "")
	envelope = decodeEnvelope(t, rec)
	assert.Equal(t, "Leave history for E002: 2025-03-03, 2025-03-04", envelope.Data["message"])
}

func TestLeaveHandlerApplyInsufficientBalance(t *testing.T) {
	r := newLeaveRouter(t)

	dates := make([]string, 19)
	for i := range dates {
		dates[i] = "2025-04-01"
	}
	payload, _ := json.Marshal(ApplyLeavePayload{LeaveDates: dates})

	rec := doRequest(r, http.MethodPost, "/api/v1/employees/E001/leaves", string(payload))
	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "insufficient_balance", envelope.Data["status"])
	assert.Equal(t, "Insufficient leave balance. You requested 19 day(s) but have only 18.", envelope.Data["message"])

	rec = doRequest(r, http.MethodGet, "/api/v1/employees/E001/leave-balance", "")
	assert.Equal(t, "E001 has 18 leave days remaining.", decodeEnvelope(t, rec).Data["message"])
}

func TestLeaveHandlerApplyRejectsBadBody(t *testing.T) {
	r := newLeaveRouter(t)

	rec := doRequest(r, http.MethodPost, "/api/v1/employees/E001/leaves", `{"leave_dates":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(r, http.MethodPost, "/api/v1/employees/E001/leaves", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestLeaveHandlerExport(t *testing.T) {
	r := newLeaveRouter(t)

	rec := doRequest(r, http.MethodGet, "/api/v1/employees/E001/leave-history/export", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "leave-history-E001.csv")
	assert.Contains(t, rec.Body.String(), "2024-12-25")

	rec = doRequest(r, http.MethodGet, "/api/v1/employees/E001/leave-history/export?format=pdf", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	rec = doRequest(r, http.MethodGet, "/api/v1/employees/E001/leave-history/export?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(r, http.MethodGet, "/api/v1/employees/E404/leave-history/export", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
