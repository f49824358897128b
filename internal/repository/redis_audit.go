package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/GoPolymarket/ginauditor/internal/model"
)

// RedisAuditRepo keeps the newest records in a capped Redis list.
type RedisAuditRepo struct {
	client  *RedisClient
	listKey string
	listMax int
	ttl     time.Duration
}

func NewRedisAuditRepo(client *RedisClient, listKey string, listMax int, ttl time.Duration) *RedisAuditRepo {
	if listKey == "" {
		listKey = "audit_logs"
	}
	if listMax <= 0 {
		listMax = 10000
	}
	return &RedisAuditRepo{
		client:  client,
		listKey: listKey,
		listMax: listMax,
		ttl:     ttl,
	}
}

func (r *RedisAuditRepo) Name() string {
	return "redis"
}

// Insert pushes entry as JSON, trims the list and refreshes its expiry.
func (r *RedisAuditRepo) Insert(ctx context.Context, entry *model.AuditLog) error {
	if entry == nil {
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	rdb := r.client.Client
	if err := rdb.LPush(ctx, r.listKey, string(payload)).Err(); err != nil {
		return fmt.Errorf("redis audit push: %w", err)
	}
	if err := rdb.LTrim(ctx, r.listKey, 0, int64(r.listMax-1)).Err(); err != nil {
		return fmt.Errorf("redis audit trim: %w", err)
	}
	if r.ttl > 0 {
		if err := rdb.Expire(ctx, r.listKey, r.ttl).Err(); err != nil {
			return fmt.Errorf("redis audit expire: %w", err)
		}
	}
	return nil
}

// List scans the head of the list; entries that fail to decode are skipped.
func (r *RedisAuditRepo) List(ctx context.Context, filter model.ListFilter) ([]*model.AuditLog, error) {
	filter = filter.Normalize()

	fetch := filter.Limit * 5
	if fetch < 100 {
		fetch = 100
	}
	if fetch > r.listMax {
		fetch = r.listMax
	}
	items, err := r.client.Client.LRange(ctx, r.listKey, 0, int64(fetch-1)).Result()
	if err != nil {
		return nil, err
	}

	results := make([]*model.AuditLog, 0, filter.Limit)
	for _, raw := range items {
		var entry model.AuditLog
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		if !filter.Match(&entry) {
			continue
		}
		results = append(results, &entry)
		if len(results) >= filter.Limit {
			break
		}
	}
	return results, nil
}
