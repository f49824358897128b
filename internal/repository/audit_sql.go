package repository

import (
	"context"
	"time"

	"github.com/GoPolymarket/ginauditor/internal/model"
	"gorm.io/gorm"
)

// SQLAuditRepo stores records in the audit_logs table.
type SQLAuditRepo struct {
	db *gorm.DB
}

func NewSQLAuditRepo(db *gorm.DB) *SQLAuditRepo {
	return &SQLAuditRepo{db: db}
}

func (r *SQLAuditRepo) Name() string {
	return "sql"
}

func (r *SQLAuditRepo) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&model.AuditLog{})
}

func (r *SQLAuditRepo) Insert(ctx context.Context, entry *model.AuditLog) error {
	if entry == nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *SQLAuditRepo) List(ctx context.Context, filter model.ListFilter) ([]*model.AuditLog, error) {
	filter = filter.Normalize()

	q := r.db.WithContext(ctx).Model(&model.AuditLog{})
	if filter.ActionID != "" {
		q = q.Where("action_id = ?", filter.ActionID)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}

	var records []*model.AuditLog
	if err := q.Order("created_at DESC").Limit(filter.Limit).Find(&records).Error; err != nil {
		return nil, err
	}
	for _, entry := range records {
		// an unreadable payload still returns the indexed columns
		_ = entry.Decode()
	}
	return records, nil
}

// Cleanup deletes records older than olderThan and returns how many were removed.
func (r *SQLAuditRepo) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.AuditLog{})
	return res.RowsAffected, res.Error
}
