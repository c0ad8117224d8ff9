package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json", Level: slog.LevelInfo})

	log.Info("Slot created", "slot_id", "slot-1", "date", "2026-03-01")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Slot created", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "slot-1", entry["slot_id"])
}

func TestNew_FormatFromEnvironment(t *testing.T) {
	tests := []struct {
		env      string
		wantJSON bool
	}{
		{"production", true},
		{"development", false},
		{"staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Writer: &buf, Environment: tt.env, Level: slog.LevelInfo})
			log.Info("hello")

			isJSON := json.Valid(bytes.TrimSpace(buf.Bytes()))
			assert.Equal(t, tt.wantJSON, isJSON)
		})
	}
}

func TestPrettyHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty", Level: slog.LevelWarn})

	log.Info("quiet")
	assert.Empty(t, buf.String())

	log.Warn("loud", "user_id", "user-1")
	out := buf.String()
	assert.Contains(t, out, "WRN")
	assert.Contains(t, out, "loud")
	assert.Contains(t, out, "user_id=user-1")
}

func TestPrettyHandler_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty", Level: slog.LevelDebug})

	log.With("component", "store").WithGroup("topic").Debug("Counters adjusted", "total", 3)

	out := buf.String()
	assert.Contains(t, out, "DBG")
	assert.Contains(t, out, "component=store")
	assert.Contains(t, out, "topic.total=3")
}

func TestPrettyHandler_QuotesSpaces(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty"})

	log.Info("Slot conflict", "title", "Morning review")
	assert.Contains(t, buf.String(), `title="Morning review"`)
}

func TestLogger_Helpers(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json"})

	log.WithError(errors.New("boom")).WithField("book_id", "book-1").
		WithFields(map[string]any{"section_id": "section-1"}).Error("Cascade failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "book-1", entry["book_id"])
	assert.Equal(t, "section-1", entry["section_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
