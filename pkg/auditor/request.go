package auditor

import (
	"bytes"
	"encoding/json"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	headerRequestID = "X-Request-Id"
	headerRealIP    = "X-Real-Ip"

	// multipart values above this size spill to temp files, which the extractor discards
	maxMultipartMemory = 1 << 20
)

// RequestExtractor reads the configured request fields off a snapshot.
type RequestExtractor struct {
	opts *Options
}

// NewRequestExtractor returns an extractor for opts.
func NewRequestExtractor(opts Options) *RequestExtractor {
	return &RequestExtractor{opts: &opts}
}

// Extract returns the enabled request fields. resp may be nil; when present
// its X-Request-Id header is used if the request carried none. Absent values
// are nil.
func (e *RequestExtractor) Extract(s *RequestSnapshot, resp *ResponseSnapshot) Record {
	cfg := e.opts
	r := s.Request
	values := Record{}

	if cfg.LogServer {
		host, port := ServerInfo(s)
		values[AttrServerHost] = host
		values[AttrServerPort] = port
	}
	if cfg.LogRequestID {
		values[AttrRequestID] = RequestID(r, resp)
	}
	if cfg.LogRemoteIP {
		values[AttrRemoteIP] = RemoteIP(r)
	}
	if cfg.LogRemotePort {
		values[AttrRemotePort] = RemotePort(r)
	}
	if cfg.LogProtocol {
		values[AttrProtocol] = optional(r.Proto)
	}
	if cfg.LogHost {
		values[AttrHost] = optional(r.Host)
	}
	if cfg.LogMethod {
		values[AttrMethod] = optional(r.Method)
	}
	if cfg.LogURI {
		values[AttrURI] = URI(r)
	}
	if cfg.LogURIPath {
		values[AttrURIPath] = optional(r.URL.Path)
	}
	if cfg.LogRoutePath {
		values[AttrRoutePath] = optional(s.RoutePath)
	}
	if cfg.LogReferer {
		values[AttrReferer] = optional(r.Referer())
	}
	if cfg.LogUserAgent {
		values[AttrUserAgent] = optional(r.UserAgent())
	}
	if cfg.LogContentLength {
		values[AttrContentLength] = ContentLength(r)
	}
	if cfg.LogRequestHeaders {
		values[AttrHeaders] = Headers(r, cfg.DefaultRequestHeaders)
	}
	if cfg.LogQueryParams {
		params := any(QueryParams(r))
		if !cfg.LogSensitiveData {
			params = RemoveSensitive(params, cfg.DefaultSensitiveParameters)
		}
		values[AttrQueryParams] = params
	}
	if cfg.LogRequestBody {
		body, decoded := decodeBody(s)
		if !cfg.LogSensitiveData {
			// undecodable structured text cannot be redacted
			if !decoded {
				body = nil
			}
			body = RemoveSensitive(body, cfg.DefaultSensitiveParameters)
		}
		values[AttrRequestBody] = body
	}
	return values
}

// ServerInfo returns the host and port of the server that accepted the
// request: the local listener address when known, otherwise the Host header
// with the scheme's default port.
func ServerInfo(s *RequestSnapshot) (host any, port any) {
	addr := s.ServerAddr
	if addr == "" {
		addr = s.Request.Host
	}
	if addr == "" {
		return nil, nil
	}

	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		h = addr
		p = "80"
		if isTLS(s.Request) {
			p = "443"
		}
	}
	n, err := strconv.Atoi(p)
	if err != nil {
		return optional(h), nil
	}
	return optional(h), n
}

func isTLS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// RequestID returns the X-Request-Id of the request, falling back to the
// response header.
func RequestID(r *http.Request, resp *ResponseSnapshot) any {
	if id := r.Header.Get(headerRequestID); id != "" {
		return id
	}
	if resp != nil && resp.Header != nil {
		return optional(resp.Header.Get(headerRequestID))
	}
	return nil
}

// RemoteIP returns the X-Real-Ip header, else the host part of RemoteAddr.
func RemoteIP(r *http.Request) any {
	if ip := strings.TrimSpace(r.Header.Get(headerRealIP)); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return optional(host)
	}
	return optional(r.RemoteAddr)
}

// RemotePort returns the client port as an int.
func RemotePort(r *http.Request) any {
	_, port, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return nil
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return nil
	}
	return n
}

// URI returns the requested path including the query string.
func URI(r *http.Request) any {
	if r.URL == nil {
		return nil
	}
	return optional(strings.TrimSuffix(r.URL.RequestURI(), "?"))
}

// ContentLength returns the declared request body length.
func ContentLength(r *http.Request) any {
	if r.ContentLength > 0 {
		return r.ContentLength
	}
	if raw := r.Header.Get("Content-Length"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
	}
	return nil
}

// Headers returns the listed headers present on the request, keyed by the
// listed name.
func Headers(r *http.Request, names []string) map[string]any {
	out := make(map[string]any, len(names))
	for _, name := range names {
		if len(r.Header.Values(name)) == 0 {
			continue
		}
		out[name] = r.Header.Get(name)
	}
	return out
}

// QueryParams parses the query string into its repeated values.
func QueryParams(r *http.Request) map[string][]string {
	values, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil && len(values) == 0 {
		return map[string][]string{}
	}
	return map[string][]string(values)
}

// Body decodes the captured request body: JSON to its value, forms to a map,
// anything else to text. A truncated or malformed JSON body is returned as
// text. An empty body is nil.
func Body(s *RequestSnapshot) any {
	v, _ := decodeBody(s)
	return v
}

// decodeBody is Body that also reports whether a JSON or form body was
// decoded. It is false when such a body fell back to raw text.
func decodeBody(s *RequestSnapshot) (any, bool) {
	if len(s.Body) == 0 {
		return nil, true
	}
	mediaType, params, _ := mime.ParseMediaType(s.Request.Header.Get("Content-Type"))

	switch {
	case isJSON(mediaType):
		var v any
		if err := json.Unmarshal(s.Body, &v); err == nil {
			return v, true
		}
	case mediaType == "application/x-www-form-urlencoded":
		if values, err := url.ParseQuery(string(s.Body)); err == nil {
			return formValues(values), true
		}
	case mediaType == "multipart/form-data" && params["boundary"] != "":
		reader := multipart.NewReader(bytes.NewReader(s.Body), params["boundary"])
		if form, err := reader.ReadForm(maxMultipartMemory); err == nil {
			defer form.RemoveAll()
			return formValues(form.Value), true
		}
	default:
		return string(s.Body), true
	}
	return string(s.Body), false
}

func isJSON(mediaType string) bool {
	if mediaType == "application/json" {
		return true
	}
	return strings.HasPrefix(mediaType, "application/") && strings.HasSuffix(mediaType, "+json")
}

func formValues(values map[string][]string) map[string]any {
	out := make(map[string]any, len(values))
	for k, vals := range values {
		switch len(vals) {
		case 0:
			out[k] = nil
		case 1:
			out[k] = vals[0]
		default:
			list := make([]any, len(vals))
			for i, v := range vals {
				list[i] = v
			}
			out[k] = list
		}
	}
	return out
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
