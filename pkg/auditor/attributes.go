package auditor

// Record keys.
const (
	AttrSource      = "source"
	AttrActionID    = "actionId"
	AttrDescription = "description"
	AttrStartTime   = "startTime"
	AttrLatency     = "latency"
	AttrRequest     = "request"
	AttrResponse    = "response"
)

// Request keys, nested under AttrRequest.
const (
	AttrServerHost    = "serverHost"
	AttrServerPort    = "serverPort"
	AttrRequestID     = "requestID"
	AttrRemoteIP      = "remoteIP"
	AttrRemotePort    = "remotePort"
	AttrProtocol      = "protocol"
	AttrHost          = "host"
	AttrMethod        = "method"
	AttrURI           = "uri"
	AttrURIPath       = "uriPath"
	AttrRoutePath     = "routePath"
	AttrReferer       = "referer"
	AttrUserAgent     = "userAgent"
	AttrContentLength = "contentLength"
	AttrHeaders       = "headers"
	AttrQueryParams   = "queryParams"
	AttrRequestBody   = "requestBody"
)

// Response keys, nested under AttrResponse.
const (
	AttrStatusCode   = "statusCode"
	AttrStatus       = "status"
	AttrError        = "error"
	AttrResponseSize = "responseSize"
)

// Record is the flat field mapping produced for one audited request.
type Record map[string]any

// Clone returns a deep copy of the record's maps and slices.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return cloneMap(r)
}

// Request returns the nested request fields, or nil.
func (r Record) Request() Record {
	return nested(r[AttrRequest])
}

// Response returns the nested response fields, or nil.
func (r Record) Response() Record {
	return nested(r[AttrResponse])
}

func nested(v any) Record {
	switch m := v.(type) {
	case Record:
		return m
	case map[string]any:
		return m
	}
	return nil
}

func cloneMap[M ~map[string]any](m M) M {
	out := make(M, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return cloneMap(t)
	case map[string]any:
		return cloneMap(t)
	case map[string][]string:
		out := make(map[string][]string, len(t))
		for k, vals := range t {
			out[k] = append([]string(nil), vals...)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	}
	return v
}
