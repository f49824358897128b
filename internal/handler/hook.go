package handler

import (
	"net/http"

	"github.com/GoPolymarket/ginauditor/pkg/auditor"
)

const HeaderActorID = "X-Actor-Id"

// AuditHook tags records with the calling application (client_id query
// parameter) and the acting user (X-Actor-Id header) when present.
func AuditHook(r *http.Request, _ *auditor.ResponseSnapshot) map[string]any {
	extra := make(map[string]any, 2)
	if appID := r.URL.Query().Get("client_id"); appID != "" {
		extra["appId"] = appID
	}
	if actor := r.Header.Get(HeaderActorID); actor != "" {
		extra["actorId"] = actor
	}
	return extra
}
