package auditor

import (
	"net/http"

	"github.com/felixge/httpsnoop"
)

// Handler audits next under actionID. The route path is taken from the
// pattern the request matched on an http.ServeMux.
func (a *Auditor) Handler(actionID, description string, next http.Handler) http.Handler {
	action := Action{ID: actionID, Description: description}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.opts.Skip {
			next.ServeHTTP(w, r)
			return
		}

		req := CaptureRequest(r, a.opts.bodyLimit())
		req.Start = a.now()

		m := httpsnoop.CaptureMetrics(next, w, r)

		resp := &ResponseSnapshot{
			StatusCode: m.Code,
			Header:     w.Header().Clone(),
			Written:    m.Written,
			End:        req.Start.Add(m.Duration),
		}
		a.finish(r, action, req, resp, nil)
	})
}
