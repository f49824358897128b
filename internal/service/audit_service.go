package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/GoPolymarket/ginauditor/internal/model"
	"github.com/GoPolymarket/ginauditor/pkg/auditor"
	"github.com/google/uuid"
)

type AuditRepo interface {
	Insert(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filter model.ListFilter) ([]*model.AuditLog, error)
}

// AuditService is the sink that persists audit records. It keeps the most
// recent ones in memory so List keeps working when no repository answers.
type AuditService struct {
	repos  []AuditRepo
	buffer *auditBuffer

	logDir  string
	mu      sync.Mutex
	logDay  string
	logFile *os.File
	encoder *json.Encoder

	newID func() string
	now   func() time.Time
}

// NewAuditService writes to every repo in order. List queries them in the
// same order. A non-empty logDir also appends each row to
// audit-YYYY-MM-DD.jsonl, switching files when the UTC date changes.
func NewAuditService(logDir string, bufferSize int, repos ...AuditRepo) (*AuditService, error) {
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, err
		}
	}
	return &AuditService{
		repos:  repos,
		buffer: newAuditBuffer(bufferSize),
		logDir: logDir,
		newID:  uuid.NewString,
		now:    time.Now,
	}, nil
}

func (s *AuditService) Name() string {
	return "audit_service"
}

// Handle stores rec. Every repo is tried; their errors are joined.
func (s *AuditService) Handle(ctx context.Context, rec auditor.Record) error {
	entry, err := model.NewAuditLog(rec, s.newID(), s.now())
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}
	s.buffer.Add(entry)

	var errs []error
	if s.logDir != "" {
		if err := s.writeFile(entry); err != nil {
			errs = append(errs, fmt.Errorf("audit file: %w", err))
		}
	}
	for _, repo := range s.repos {
		if err := repo.Insert(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// List returns stored records, newest first, from the first repo that
// answers, falling back to the in-memory buffer.
func (s *AuditService) List(ctx context.Context, filter model.ListFilter) ([]*model.AuditLog, error) {
	filter = filter.Normalize()
	for _, repo := range s.repos {
		records, err := repo.List(ctx, filter)
		if err == nil {
			return records, nil
		}
	}
	return s.buffer.List(filter), nil
}

// writeFile appends entry to the file of its day, rotating on date change.
func (s *AuditService) writeFile(entry *model.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := entry.CreatedAt.Format("2006-01-02")
	if s.logFile == nil || day != s.logDay {
		if s.logFile != nil {
			_ = s.logFile.Close()
			s.logFile, s.encoder = nil, nil
		}
		filename := filepath.Join(s.logDir, "audit-"+day+".jsonl")
		f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		s.logFile = f
		s.logDay = day
		s.encoder = json.NewEncoder(f)
	}
	return s.encoder.Encode(entry)
}

func (s *AuditService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logFile == nil {
		return nil
	}
	err := s.logFile.Close()
	s.logFile, s.encoder = nil, nil
	return err
}

type auditBuffer struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.AuditLog
	nextIndex int
}

func newAuditBuffer(maxSize int) *auditBuffer {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &auditBuffer{
		maxSize: maxSize,
		records: make([]*model.AuditLog, 0, maxSize),
	}
}

func (b *auditBuffer) Add(entry *model.AuditLog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) < b.maxSize {
		b.records = append(b.records, entry)
		return
	}
	b.records[b.nextIndex] = entry
	b.nextIndex = (b.nextIndex + 1) % b.maxSize
}

func (b *auditBuffer) List(filter model.ListFilter) []*model.AuditLog {
	b.mu.Lock()
	defer b.mu.Unlock()
	limit := filter.Limit
	if limit <= 0 || limit > b.maxSize {
		limit = b.maxSize
	}
	results := make([]*model.AuditLog, 0, limit)
	total := len(b.records)
	for i := 0; i < total; i++ {
		idx := (b.nextIndex + total - 1 - i) % total
		entry := b.records[idx]
		if !filter.Match(entry) {
			continue
		}
		results = append(results, entry)
		if len(results) >= limit {
			break
		}
	}
	return results
}
