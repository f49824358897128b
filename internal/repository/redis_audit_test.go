package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/GoPolymarket/ginauditor/internal/model"
	"github.com/GoPolymarket/ginauditor/pkg/auditor"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntry(t *testing.T, id, action string, at time.Time) *model.AuditLog {
	t.Helper()
	rec := auditor.Record{
		auditor.AttrActionID: action,
		auditor.AttrRequest:  auditor.Record{auditor.AttrMethod: "POST", auditor.AttrURIPath: "/api/v1/users"},
		auditor.AttrResponse: auditor.Record{auditor.AttrStatusCode: 201},
	}
	entry, err := model.NewAuditLog(rec, id, at)
	require.NoError(t, err)
	return entry
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestRedisAuditRepoInsert(t *testing.T) {
	db, mock := redismock.NewClientMock()
	repo := NewRedisAuditRepo(&RedisClient{Client: db}, "audit:test", 3, time.Hour)
	entry := newEntry(t, "id-1", "CREATE_USER", time.Now())

	mock.ExpectLPush("audit:test", mustJSON(t, entry)).SetVal(1)
	mock.ExpectLTrim("audit:test", 0, 2).SetVal("OK")
	mock.ExpectExpire("audit:test", time.Hour).SetVal(true)

	require.NoError(t, repo.Insert(context.Background(), entry))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisAuditRepoInsertWithoutTTL(t *testing.T) {
	db, mock := redismock.NewClientMock()
	repo := NewRedisAuditRepo(&RedisClient{Client: db}, "", 0, 0)
	entry := newEntry(t, "id-1", "CREATE_USER", time.Now())

	mock.ExpectLPush("audit_logs", mustJSON(t, entry)).SetVal(1)
	mock.ExpectLTrim("audit_logs", 0, 9999).SetVal("OK")

	require.NoError(t, repo.Insert(context.Background(), entry))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisAuditRepoInsertError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	repo := NewRedisAuditRepo(&RedisClient{Client: db}, "audit:test", 3, time.Hour)
	entry := newEntry(t, "id-1", "CREATE_USER", time.Now())

	mock.ExpectLPush("audit:test", mustJSON(t, entry)).SetErr(errors.New("connection refused"))

	err := repo.Insert(context.Background(), entry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis audit push")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisAuditRepoList(t *testing.T) {
	db, mock := redismock.NewClientMock()
	repo := NewRedisAuditRepo(&RedisClient{Client: db}, "audit:test", 3, time.Hour)

	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectLRange("audit:test", 0, 2).SetVal([]string{
		mustJSON(t, newEntry(t, "id-3", "CREATE_USER", now)),
		"not-json",
		mustJSON(t, newEntry(t, "id-1", "GET_USER", now.Add(-time.Minute))),
	})

	records, err := repo.List(context.Background(), model.ListFilter{ActionID: "CREATE_USER"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "id-3", records[0].ID)
	assert.Equal(t, 201, records[0].StatusCode)
	assert.Equal(t, "CREATE_USER", records[0].Record[auditor.AttrActionID])
	require.NoError(t, mock.ExpectationsWereMet())
}
