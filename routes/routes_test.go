package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/audit-trail/app"
	"github.com/upb/audit-trail/config"
	"github.com/upb/audit-trail/models"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Port:           8080,
			RequestTimeout: 5 * time.Second,
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Storage: config.StorageConfig{
			Backend: config.BackendFile,
			DataDir: t.TempDir(),
		},
		Observability: config.ObservabilityConfig{LogLevel: "info"},
	}

	deps, err := app.NewDependencies(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	srv := httptest.NewServer(SetupRoutes(deps))
	t.Cleanup(func() {
		srv.Close()
		_ = deps.Close(context.Background())
	})
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestRoutes_RegisterUser(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/api/users",
		`{"username":"alice","email":"a@x.io","role":"USER","organization":"Org1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.User
	require.NoError(t, json.Unmarshal(body["user"], &created))
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Active)
	assert.NotNil(t, created.Permissions)
	assert.Empty(t, created.Permissions)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	resp, body = do(t, srv, http.MethodGet, "/api/users/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched models.User
	require.NoError(t, json.Unmarshal(body["user"], &fetched))
	assert.Equal(t, created, fetched)

	resp, body = do(t, srv, http.MethodPut, "/api/users/"+created.ID+"/role", `{"role":"AUDITOR"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body["user"], &fetched))
	assert.Equal(t, models.RoleAuditor, fetched.Role)

	resp, body = do(t, srv, http.MethodGet, "/api/users/exists/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `true`, string(body["exists"]))

	resp, _ = do(t, srv, http.MethodDelete, "/api/users/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, srv, http.MethodGet, "/api/users/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body["user"], &fetched))
	assert.False(t, fetched.Active)
}

func TestRoutes_UnknownUserIs404(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodGet, "/api/users/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "error")
}

func TestRoutes_MissingFieldsAre400(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/api/users", `{"email":"a@x.io"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "error")

	resp, _ = do(t, srv, http.MethodPost, "/api/audit", `{"action":"CREATE"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRoutes_LogAuditThenQueryByUser(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/api/audit", `{"userId":"u1","action":"CREATE"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var logged models.AuditEntry
	require.NoError(t, json.Unmarshal(body["audit"], &logged))
	assert.NotEmpty(t, logged.ID)
	assert.Equal(t, models.StatusSuccess, logged.Status)

	resp, _ = do(t, srv, http.MethodPost, "/api/audit", `{"userId":"u2","action":"QUERY"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = do(t, srv, http.MethodGet, "/api/audit/user/u1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []models.AuditEntry
	require.NoError(t, json.Unmarshal(body["audits"], &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, logged.ID, entries[0].ID)

	resp, body = do(t, srv, http.MethodGet, "/api/audit/action/query", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body["audits"], &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "u2", entries[0].UserID)

	resp, body = do(t, srv, http.MethodGet, "/api/audit/"+logged.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "audit")

	resp, body = do(t, srv, http.MethodGet, "/api/audit", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body["audits"], &entries))
	assert.Len(t, entries, 2)
}

func TestRoutes_LogAuditWithCustomStatus(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/api/audit", `{"userId":"u1","action":"CREATE","status":"PENDING"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var logged models.AuditEntry
	require.NoError(t, json.Unmarshal(body["audit"], &logged))
	assert.Equal(t, "PENDING", logged.Status)
}

func TestRoutes_DateRange(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodGet, "/api/audit/daterange?start=200&end=100", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body["audits"]))

	resp, _ = do(t, srv, http.MethodGet, "/api/audit/daterange?start=abc&end=100", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodGet, "/api/audit/daterange?start=-1&end=100", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodGet, "/api/audit/stats?start=-1", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRoutes_GenerateReportRejectsNegativeWindow(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/api/reports",
		`{"reportType":"SOC2","startDate":-1,"endDate":1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body["code"]), "validation")
}

func TestRoutes_GenerateReport(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/api/reports",
		`{"reportType":"SOC2","startDate":0,"endDate":1}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var generated models.Report
	require.NoError(t, json.Unmarshal(body["report"], &generated))
	assert.Equal(t, models.ReportStatusCompleted, generated.Status)
	assert.Equal(t, 0, generated.TotalEntries)
	assert.Equal(t, 0, generated.AnomaliesFound)

	resp, body = do(t, srv, http.MethodGet, "/api/reports/"+generated.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "report")

	resp, body = do(t, srv, http.MethodGet, "/api/reports", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reports []models.Report
	require.NoError(t, json.Unmarshal(body["reports"], &reports))
	assert.Len(t, reports, 1)

	resp, _ = do(t, srv, http.MethodGet, "/api/reports/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRoutes_HealthAndUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `"file"`, string(body["backend"]))

	resp, _ = do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, srv, http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "error")
}
