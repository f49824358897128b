package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuditHook(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/users?client_id=makai", nil)
	r.Header.Set(HeaderActorID, "admin-7")

	extra := AuditHook(r, nil)
	if extra["appId"] != "makai" || extra["actorId"] != "admin-7" {
		t.Fatalf("unexpected extras: %v", extra)
	}

	extra = AuditHook(httptest.NewRequest(http.MethodGet, "/api/v1/users", nil), nil)
	if len(extra) != 0 {
		t.Fatalf("expected no extras, got %v", extra)
	}
}
