package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GoPolymarket/ginauditor/internal/config"
	"github.com/GoPolymarket/ginauditor/internal/model"
	"github.com/GoPolymarket/ginauditor/internal/service"
	"github.com/GoPolymarket/ginauditor/pkg/auditor"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type testApp struct {
	router  *gin.Engine
	auditor *auditor.Auditor
	audits  *service.AuditService
	health  error
}

func newTestApp(t *testing.T, opts ...func(*config.Config)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	a, err := auditor.New(auditor.DefaultOptions(), auditor.WithRegisterer(reg))
	if err != nil {
		t.Fatalf("new auditor: %v", err)
	}
	audits, err := service.NewAuditService("", 100)
	if err != nil {
		t.Fatalf("new audit service: %v", err)
	}
	if err := a.RegisterSink(audits); err != nil {
		t.Fatalf("register sink: %v", err)
	}

	cfg := &config.Config{
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	users := service.NewUserService(model.User{ID: 1, Name: "Makai"}, model.User{ID: 2, Name: "TNiaH"})

	app := &testApp{auditor: a, audits: audits}
	app.router = NewRouter(cfg, RouterDeps{
		Auditor:  a,
		Users:    NewUserHandler(users),
		Audit:    NewAuditHandler(audits),
		Gatherer: reg,
		Health:   func() error { return app.health },
	})
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return app
}

func (app *testApp) do(method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	return rec
}

// drain waits for queued audit records to reach the sinks.
func (app *testApp) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.auditor.Close(ctx); err != nil {
		t.Fatalf("drain auditor: %v", err)
	}
}

func (app *testApp) auditLogs(t *testing.T, query string) []map[string]any {
	t.Helper()
	rec := app.do(http.MethodGet, "/audit/logs"+query, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from audit logs, got %d: %s", rec.Code, rec.Body.String())
	}
	var logs []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &logs); err != nil {
		t.Fatalf("decode audit logs: %v", err)
	}
	return logs
}

func TestCreateUserIsAudited(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/api/v1/users?client_id=makai", "application/json", `{"name":"Kai","password":"hunter2"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	requestID := rec.Header().Get("X-Request-ID")
	if requestID == "" {
		t.Fatalf("expected a generated request id")
	}
	app.drain(t)

	logs := app.auditLogs(t, "?action=CREATE_USER")
	if len(logs) != 1 {
		t.Fatalf("expected 1 audit log, got %d", len(logs))
	}
	entry := logs[0]
	if entry["status_code"] != 201.0 || entry["method"] != "POST" || entry["path"] != "/api/v1/users" {
		t.Fatalf("unexpected indexed columns: %v", entry)
	}

	record := entry["record"].(map[string]any)
	if record["description"] != "Create a new user" {
		t.Fatalf("unexpected description: %v", record["description"])
	}
	if record["userId"] != 3.0 {
		t.Fatalf("expected userId extra from the handler, got %v", record["userId"])
	}
	request := record["request"].(map[string]any)
	if request["requestID"] != requestID {
		t.Fatalf("expected requestID %q from the response header, got %v", requestID, request["requestID"])
	}
	body := request["requestBody"].(map[string]any)
	if _, ok := body["password"]; ok {
		t.Fatalf("password must not be recorded")
	}
	if body["name"] != "Kai" {
		t.Fatalf("unexpected request body: %v", body)
	}
	response := record["response"].(map[string]any)
	if response["status"] != "Created" || response["error"] != "N/A" {
		t.Fatalf("unexpected response fields: %v", response)
	}
}

func TestCreateUserRejections(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/api/v1/users", "application/json", `{"password":"hunter2"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without name, got %d", rec.Code)
	}
	rec = app.do(http.MethodPost, "/api/v1/users", "text/plain", "name=Kai")
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415 for text body, got %d", rec.Code)
	}
	app.drain(t)

	errorsByStatus := map[float64]any{}
	for _, entry := range app.auditLogs(t, "?action=CREATE_USER") {
		response := entry["record"].(map[string]any)["response"].(map[string]any)
		errorsByStatus[response["statusCode"].(float64)] = response["error"]
	}
	if errorsByStatus[400] != "Please provide a name." {
		t.Fatalf("unexpected 400 error field: %v", errorsByStatus[400])
	}
	if errorsByStatus[415] != "Media type is not supported." {
		t.Fatalf("unexpected 415 error field: %v", errorsByStatus[415])
	}
}

func TestGetAndListUsers(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/api/v1/users/2", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "TNiaH") {
		t.Fatalf("unexpected get user response: %d %s", rec.Code, rec.Body.String())
	}
	if rec := app.do(http.MethodGet, "/api/v1/users/abc", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for non-numeric id, got %d", rec.Code)
	}
	if rec := app.do(http.MethodGet, "/api/v1/users/99", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", rec.Code)
	}
	rec = app.do(http.MethodGet, "/api/v1/users", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Makai") {
		t.Fatalf("unexpected list response: %d %s", rec.Code, rec.Body.String())
	}
	app.drain(t)

	logs := app.auditLogs(t, "?action=GET_USER")
	if len(logs) != 3 {
		t.Fatalf("expected 3 GET_USER logs, got %d", len(logs))
	}
	route := logs[0]["record"].(map[string]any)["request"].(map[string]any)["routePath"]
	if route != "/api/v1/users/:id" {
		t.Fatalf("unexpected route path: %v", route)
	}
	if logs := app.auditLogs(t, "?action=LIST_USERS&limit=10"); len(logs) != 1 {
		t.Fatalf("expected 1 LIST_USERS log, got %d", len(logs))
	}
}

func TestAuditLogsQueryValidation(t *testing.T) {
	app := newTestApp(t)

	for _, query := range []string{"?limit=abc", "?from=yesterday", "?to=soon"} {
		rec := app.do(http.MethodGet, "/audit/logs"+query, "", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", query, rec.Code)
		}
	}

	logs := app.auditLogs(t, "?from=1700000000&to=2030-01-01T00:00:00Z")
	if len(logs) != 0 {
		t.Fatalf("expected no logs, got %d", len(logs))
	}
}

type failingLister struct{}

func (failingLister) List(context.Context, model.ListFilter) ([]*model.AuditLog, error) {
	return nil, errors.New("db down")
}

func TestAuditLogsListError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/audit/logs", NewAuditHandler(failingLister{}).List)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/logs", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected healthy, got %d", rec.Code)
	}

	app.health = errors.New("redis unreachable")
	rec = app.do(http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusServiceUnavailable || !bytes.Contains(rec.Body.Bytes(), []byte("redis unreachable")) {
		t.Fatalf("expected degraded health, got %d %s", rec.Code, rec.Body.String())
	}

	rec = app.do(http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "auditor_records_dropped_total") {
		t.Fatalf("expected auditor metrics, got %d", rec.Code)
	}
}

func TestAuditLogsRequireAdminKey(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Auth.AdminKey = "s3cret"
	})

	if rec := app.do(http.MethodGet, "/audit/logs", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without admin key, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/audit/logs", nil)
	req.Header.Set("X-Admin-Key", "s3cret")
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with admin key, got %d", rec.Code)
	}

	// the users API stays public
	if rec := app.do(http.MethodGet, "/api/v1/users", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected public users API, got %d", rec.Code)
	}
}
