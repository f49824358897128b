package model

import (
	"encoding/json"
	"time"

	"github.com/GoPolymarket/ginauditor/pkg/auditor"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// AuditLog is one stored audit record. The full record travels as JSON in
// Payload; the other columns are copied out of it for querying.
type AuditLog struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	ActionID   string         `gorm:"size:128;index:idx_audit_logs_action" json:"action_id"`
	Source     string         `gorm:"size:128" json:"source"`
	RequestID  string         `gorm:"size:128" json:"request_id"`
	Method     string         `gorm:"size:16" json:"method"`
	Path       string         `gorm:"size:1024" json:"path"`
	StatusCode int            `json:"status_code"`
	Latency    float64        `json:"latency"` // seconds
	Payload    string         `gorm:"type:text" json:"-"`
	Record     auditor.Record `gorm:"-" json:"record"`
	CreatedAt  time.Time      `gorm:"index:idx_audit_logs_created" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog flattens rec into a row.
func NewAuditLog(rec auditor.Record, id string, now time.Time) (*AuditLog, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	req := rec.Request()
	resp := rec.Response()

	return &AuditLog{
		ID:         id,
		ActionID:   stringField(rec, auditor.AttrActionID),
		Source:     stringField(rec, auditor.AttrSource),
		RequestID:  stringField(req, auditor.AttrRequestID),
		Method:     stringField(req, auditor.AttrMethod),
		Path:       stringField(req, auditor.AttrURIPath),
		StatusCode: intField(resp, auditor.AttrStatusCode),
		Latency:    floatField(rec, auditor.AttrLatency),
		Payload:    string(payload),
		Record:     rec,
		CreatedAt:  now.UTC(),
	}, nil
}

// Decode restores Record from Payload after a database read.
func (a *AuditLog) Decode() error {
	if a.Record != nil || a.Payload == "" {
		return nil
	}
	var rec auditor.Record
	if err := json.Unmarshal([]byte(a.Payload), &rec); err != nil {
		return err
	}
	a.Record = rec
	return nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func floatField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// ListFilter selects stored records, newest first.
type ListFilter struct {
	ActionID string
	Limit    int
	From     *time.Time
	To       *time.Time
}

// Normalize clamps Limit to (0, MaxListLimit].
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	return f
}

// Match reports whether entry passes the filter.
func (f ListFilter) Match(entry *AuditLog) bool {
	if entry == nil {
		return false
	}
	if f.ActionID != "" && entry.ActionID != f.ActionID {
		return false
	}
	if f.From != nil && entry.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && entry.CreatedAt.After(*f.To) {
		return false
	}
	return true
}
