package response

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	domainerrors "github.com/studytrackapp/studytrack-server/internal/errors"
	"github.com/studytrackapp/studytrack-server/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestJSON_Success(t *testing.T) {
	w := httptest.NewRecorder()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	JSON(w, http.StatusOK, map[string]string{"message": "test"}, logger)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	out := decode(t, w)
	assert.InDelta(t, 1, out["v"], 0)
	assert.Equal(t, true, out["success"])
	assert.NotNil(t, out["data"])
	assert.NotContains(t, out, "error")
}

func TestJSON_ErrorStatusMarksFailure(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusNotFound, map[string]string{"message": "test"}, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestTooManyRequests(t *testing.T) {
	w := httptest.NewRecorder()

	TooManyRequests(w, "Too many requests.", nil)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	out := decode(t, w)
	assert.Equal(t, "RATE_LIMITED", out["code"])
	assert.Equal(t, "Too many requests.", out["error"])
	assert.Equal(t, "Too many requests.", out["message"])
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"domain", domainerrors.Forbidden("You do not have access to this book."), http.StatusForbidden, "FORBIDDEN"},
		{"store not found", store.ErrSlotNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"store conflict", store.ErrEmailExists, http.StatusConflict, "ALREADY_EXISTS"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleError(w, tt.err, nil)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w)["code"])
		})
	}
}

func TestHandleError_KeepsDetails(t *testing.T) {
	w := httptest.NewRecorder()
	HandleError(w, domainerrors.Conflict("overlap").WithDetails(map[string]string{"slot_id": "slot-1"}), nil)

	details, ok := decode(t, w)["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "slot-1", details["slot_id"])
}
