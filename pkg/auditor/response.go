package auditor

import (
	"net/http"
	"strconv"
)

// ResponseExtractor reads the configured response fields off a snapshot.
type ResponseExtractor struct {
	opts *Options
}

// NewResponseExtractor returns an extractor for opts.
func NewResponseExtractor(opts Options) *ResponseExtractor {
	return &ResponseExtractor{opts: &opts}
}

// Extract returns the enabled response fields. Absent values are nil.
func (e *ResponseExtractor) Extract(s *ResponseSnapshot) Record {
	cfg := e.opts
	values := Record{}

	if cfg.LogStatusCode {
		values[AttrStatusCode] = StatusCode(s)
	}
	if cfg.LogStatus {
		values[AttrStatus] = Status(s)
	}
	if cfg.LogError {
		values[AttrError] = optional(s.Err)
	}
	if cfg.LogResponseSize {
		values[AttrResponseSize] = ResponseSize(s)
	}
	return values
}

// StatusCode returns the status written by the handler.
func StatusCode(s *ResponseSnapshot) any {
	if s.StatusCode == 0 {
		return nil
	}
	return s.StatusCode
}

// Status returns the reason phrase of the status code, e.g. "Created".
func Status(s *ResponseSnapshot) any {
	return optional(http.StatusText(s.StatusCode))
}

// ResponseSize returns the declared Content-Length, else the number of bytes
// written.
func ResponseSize(s *ResponseSnapshot) any {
	if s.Header != nil {
		if raw := s.Header.Get("Content-Length"); raw != "" {
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return n
			}
		}
	}
	if s.Written > 0 {
		return s.Written
	}
	return nil
}
