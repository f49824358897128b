package auditor

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// RequestSnapshot is a copy of an incoming request taken on the serving
// goroutine, safe to read after the handler returned.
type RequestSnapshot struct {
	// Request is a clone detached from the original context and body.
	Request *http.Request
	// Body holds at most MaxBodySize bytes of the request body.
	Body []byte
	// Truncated reports whether the body was longer than Body.
	Truncated bool
	// RoutePath is the route pattern the request matched, if any.
	RoutePath string
	// ServerAddr is the local address that accepted the connection, if known.
	ServerAddr string
	Start      time.Time
}

// ResponseSnapshot describes the response once the handler finished.
type ResponseSnapshot struct {
	StatusCode int
	Header     http.Header
	// Written is the number of body bytes written by the handler.
	Written int64
	// Err is the handler error text, empty when none.
	Err string
	End time.Time
}

type replayBody struct {
	io.Reader
	io.Closer
}

// CaptureRequest snapshots r. Up to maxBody bytes of the body are buffered
// and r.Body is replaced so downstream handlers still read the full body.
func CaptureRequest(r *http.Request, maxBody int) *RequestSnapshot {
	snap := &RequestSnapshot{
		RoutePath: routePattern(r.Pattern),
		Start:     time.Now(),
	}
	if addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok && addr != nil {
		snap.ServerAddr = addr.String()
	}

	if maxBody > 0 && r.Body != nil && r.Body != http.NoBody {
		buf, _ := io.ReadAll(io.LimitReader(r.Body, int64(maxBody)+1))
		r.Body = replayBody{
			Reader: io.MultiReader(bytes.NewReader(buf), r.Body),
			Closer: r.Body,
		}
		if len(buf) > maxBody {
			buf = buf[:maxBody]
			snap.Truncated = true
		}
		snap.Body = buf
	}

	clone := r.Clone(context.Background())
	clone.Body = http.NoBody
	clone.GetBody = nil
	snap.Request = clone
	return snap
}

// routePattern drops the method of a ServeMux pattern such as "GET /users/{id}".
func routePattern(pattern string) string {
	if i := strings.IndexAny(pattern, " \t"); i >= 0 {
		return strings.TrimLeft(pattern[i:], " \t")
	}
	return pattern
}
