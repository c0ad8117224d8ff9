package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnvelope mirrors the response envelope for decoding in tests.
type testEnvelope[T any] struct {
	V       int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

func transform(t *testing.T, status string, v any) map[string]any {
	t.Helper()

	result, err := EnvelopeTransformer(nil, status, v)
	require.NoError(t, err)

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestEnvelopeContract_Success(t *testing.T) {
	out := transform(t, "200", map[string]string{"id": "book-123", "title": "Physics"})

	assert.InDelta(t, 1, out["v"], 0)
	assert.Equal(t, true, out["success"])
	assert.Contains(t, out, "data")
	for key := range out {
		assert.Contains(t, []string{"v", "success", "data"}, key, "unexpected field %s", key)
	}
}

func TestEnvelopeContract_SuccessNullData(t *testing.T) {
	out := transform(t, "204", nil)

	assert.InDelta(t, 1, out["v"], 0)
	assert.Equal(t, true, out["success"])
	assert.NotContains(t, out, "data")
}

func TestEnvelopeContract_SimpleError(t *testing.T) {
	out := transform(t, "404", &APIError{Code: "NOT_FOUND", Message: "Book not found."})

	assert.Equal(t, false, out["success"])
	assert.Equal(t, "Book not found.", out["error"])
	assert.Equal(t, "NOT_FOUND", out["code"])
	assert.NotContains(t, out, "details")
}

func TestEnvelopeContract_DetailedError(t *testing.T) {
	out := transform(t, "409", &APIError{
		Code:    "CONFLICT",
		Message: "This slot overlaps with \"Physics\" (09:00–10:00).",
		Details: map[string]string{"slot_id": "slot-abc"},
	})

	assert.Equal(t, "CONFLICT", out["code"])
	assert.IsType(t, "", out["message"])
	details, ok := out["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "slot-abc", details["slot_id"])
}

// The version field is named exactly "v"; renaming it breaks clients silently.
func TestEnvelopeContract_VersionFieldName(t *testing.T) {
	out := transform(t, "200", nil)

	assert.Contains(t, out, "v")
	assert.NotContains(t, out, "version")
	assert.NotContains(t, out, "Version")
}
