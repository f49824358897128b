package auditor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveSensitive(t *testing.T) {
	body := map[string]any{
		"name":     "Makai",
		"password": "hunter2",
		"profile": map[string]any{
			"secretKey": "abc",
			"city":      "Honolulu",
		},
		"keys": []any{
			map[string]any{"private_key": "k1", "label": "main"},
			"plain",
		},
	}

	got := RemoveSensitive(body, []string{"password", "secretKey", "private_key"})

	assert.Equal(t, map[string]any{
		"name":    "Makai",
		"profile": map[string]any{"city": "Honolulu"},
		"keys": []any{
			map[string]any{"label": "main"},
			"plain",
		},
	}, got)
	// input untouched
	assert.Equal(t, "hunter2", body["password"])
}

func TestRemoveSensitiveQueryParams(t *testing.T) {
	params := map[string][]string{"client_id": {"makai"}, "pwd": {"x"}}
	got := RemoveSensitive(params, []string{"pwd"})
	assert.Equal(t, map[string][]string{"client_id": {"makai"}}, got)
}

func TestRemoveSensitivePassthrough(t *testing.T) {
	assert.Equal(t, "raw text", RemoveSensitive("raw text", []string{"password"}))
	assert.Equal(t, 42.0, RemoveSensitive(42.0, []string{"password"}))
	assert.Nil(t, RemoveSensitive(nil, []string{"password"}))

	body := map[string]any{"password": "x"}
	assert.Equal(t, body, RemoveSensitive(body, nil))
}

func TestFillMissing(t *testing.T) {
	rec := Record{
		AttrActionID:    "CREATE_USER",
		AttrDescription: nil,
		AttrRequest: Record{
			AttrReferer: nil,
			AttrMethod:  "POST",
			AttrRequestBody: map[string]any{
				"nickname": nil,
				"tags":     []any{"a", nil},
			},
		},
	}

	got := FillMissing(rec, "N/A")

	assert.Equal(t, "N/A", got[AttrDescription])
	assert.Equal(t, "CREATE_USER", got[AttrActionID])
	assert.Equal(t, "N/A", got.Request()[AttrReferer])
	assert.Equal(t, "POST", got.Request()[AttrMethod])
	assert.Equal(t, map[string]any{
		"nickname": "N/A",
		"tags":     []any{"a", "N/A"},
	}, got.Request()[AttrRequestBody])
}

func TestRecordClone(t *testing.T) {
	rec := Record{
		AttrRequest: Record{
			AttrQueryParams: map[string][]string{"q": {"1"}},
		},
	}
	clone := rec.Clone()
	clone.Request()[AttrQueryParams].(map[string][]string)["q"][0] = "changed"
	clone.Request()[AttrMethod] = "GET"

	assert.Equal(t, "1", rec.Request()[AttrQueryParams].(map[string][]string)["q"][0])
	assert.NotContains(t, rec.Request(), AttrMethod)
}
