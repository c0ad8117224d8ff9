package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/service"
)

func (ts *testServer) createSlot(t *testing.T, bearer, date, start, end string) *domain.DailySlot {
	t.Helper()
	resp := ts.api.Post("/api/v1/slots", bearer, map[string]any{
		"date":       date,
		"start_time": start,
		"end_time":   end,
		"title":      "Morning block",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[*domain.DailySlot](t, resp.Body.Bytes())
}

func (ts *testServer) addTask(t *testing.T, bearer, slotID string, body map[string]any) SlotTaskResponse {
	t.Helper()
	resp := ts.api.Post("/api/v1/slots/"+slotID+"/tasks", bearer, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[SlotTaskResponse](t, resp.Body.Bytes())
}

func TestCreateSlot_Overlap(t *testing.T) {
	ts := setupTestServer(t)
	_, bearer := ts.createUser(t, "ada@example.com", domain.RoleUser)
	existing := ts.createSlot(t, bearer, "2026-03-02", "09:00", "10:00")

	resp := ts.api.Post("/api/v1/slots", bearer, map[string]any{
		"date":       "2026-03-02",
		"start_time": "09:30",
		"end_time":   "11:00",
		"title":      "Overlapping",
	})
	require.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())

	env := decodeError(t, resp.Body.Bytes())
	assert.Equal(t, "CONFLICT", env.Code)
	raw, err := json.Marshal(env.Details)
	require.NoError(t, err)
	var details service.ConflictDetails
	require.NoError(t, json.Unmarshal(raw, &details))
	assert.Equal(t, existing.ID, details.SlotID)
	assert.Equal(t, "09:00", details.StartTime)

	// Touching intervals do not overlap.
	ts.createSlot(t, bearer, "2026-03-02", "10:00", "11:00")
	// Another date is independent.
	ts.createSlot(t, bearer, "2026-03-03", "09:30", "11:00")
}

func TestCreateSlot_InvalidTimes(t *testing.T) {
	ts := setupTestServer(t)
	_, bearer := ts.createUser(t, "ada@example.com", domain.RoleUser)

	tests := []struct {
		name       string
		date       string
		start, end string
	}{
		{name: "end before start", date: "2026-03-02", start: "11:00", end: "10:00"},
		{name: "zero length", date: "2026-03-02", start: "10:00", end: "10:00"},
		{name: "bad time", date: "2026-03-02", start: "25:00", end: "26:00"},
		{name: "bad date", date: "02/03/2026", start: "09:00", end: "10:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/slots", bearer, map[string]any{
				"date": tt.date, "start_time": tt.start, "end_time": tt.end, "title": "Block",
			})
			assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
		})
	}
}

func TestUpdateSlot_RecheckOverlap(t *testing.T) {
	ts := setupTestServer(t)
	_, bearer := ts.createUser(t, "ada@example.com", domain.RoleUser)
	ts.createSlot(t, bearer, "2026-03-02", "09:00", "10:00")
	second := ts.createSlot(t, bearer, "2026-03-02", "10:00", "11:00")

	resp := ts.api.Patch("/api/v1/slots/"+second.ID, bearer, map[string]any{"start_time": "09:59"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	// Moving within its own interval never conflicts with itself.
	resp = ts.api.Patch("/api/v1/slots/"+second.ID, bearer, map[string]any{"end_time": "10:30"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "10:30", decode[*domain.DailySlot](t, resp.Body.Bytes()).EndTime)
}

func TestListSlots_Filter(t *testing.T) {
	ts := setupTestServer(t)
	_, bearer := ts.createUser(t, "ada@example.com", domain.RoleUser)
	ts.createSlot(t, bearer, "2026-03-02", "13:00", "14:00")
	ts.createSlot(t, bearer, "2026-03-02", "09:00", "10:00")
	ts.createSlot(t, bearer, "2026-03-05", "09:00", "10:00")

	resp := ts.api.Get("/api/v1/slots?date=2026-03-02", bearer)
	require.Equal(t, http.StatusOK, resp.Code)
	slots := decode[ListSlotsResponse](t, resp.Body.Bytes()).Slots
	require.Len(t, slots, 2)
	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.Equal(t, "13:00", slots[1].StartTime)

	resp = ts.api.Get("/api/v1/slots?from=2026-03-03&to=2026-03-10", bearer)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[ListSlotsResponse](t, resp.Body.Bytes()).Slots, 1)

	resp = ts.api.Get("/api/v1/slots?date=tomorrow", bearer)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSlotTasks(t *testing.T) {
	ts := setupTestServer(t)
	_, bearer := ts.createUser(t, "ada@example.com", domain.RoleUser)
	slot := ts.createSlot(t, bearer, "2026-03-02", "09:00", "10:00")

	added := ts.addTask(t, bearer, slot.ID, map[string]any{"type": "CUSTOM", "title_snapshot": "Flashcards"})
	assert.Equal(t, 1, added.Slot.TotalTasks)
	assert.Equal(t, domain.TaskKindCustom, added.Task.Kind)

	resp := ts.api.Patch("/api/v1/slots/"+slot.ID+"/tasks/"+added.Task.ID+"/toggle", bearer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	toggled := decode[service.TaskToggleResult](t, resp.Body.Bytes())
	assert.True(t, toggled.Task.IsCompleted)
	assert.Equal(t, 1, toggled.Slot.CompletedTasks)
	assert.Nil(t, toggled.Topic)

	resp = ts.api.Patch("/api/v1/slots/"+slot.ID+"/tasks/"+added.Task.ID, bearer, map[string]any{"title_snapshot": "Anki"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Anki", decode[SlotTaskResponse](t, resp.Body.Bytes()).Task.TitleSnapshot)

	resp = ts.api.Delete("/api/v1/slots/"+slot.ID+"/tasks/"+added.Task.ID, bearer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	after := decode[*domain.DailySlot](t, resp.Body.Bytes())
	assert.Zero(t, after.TotalTasks)
	assert.Zero(t, after.CompletedTasks)

	resp = ts.api.Patch("/api/v1/slots/"+slot.ID+"/tasks/"+added.Task.ID+"/toggle", bearer)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAddTask_Validation(t *testing.T) {
	ts := setupTestServer(t)
	_, bearer := ts.createUser(t, "ada@example.com", domain.RoleUser)
	slot := ts.createSlot(t, bearer, "2026-03-02", "09:00", "10:00")

	tests := []struct {
		name    string
		body    map[string]any
		message string
	}{
		{
			name:    "unknown type",
			body:    map[string]any{"type": "custom", "title_snapshot": "x"},
			message: "type must be TEXTBOOK or CUSTOM.",
		},
		{
			name:    "missing title",
			body:    map[string]any{"type": "CUSTOM"},
			message: "titleSnapshot is required.",
		},
		{
			name:    "textbook without topic",
			body:    map[string]any{"type": "TEXTBOOK", "title_snapshot": "x"},
			message: "topicId is required for TEXTBOOK tasks.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/slots/"+slot.ID+"/tasks", bearer, tt.body)
			require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
			assert.Equal(t, tt.message, decodeError(t, resp.Body.Bytes()).Message)
		})
	}
}

func TestToggleTask_SyncTopic(t *testing.T) {
	ts := setupTestServer(t)
	_, bearer := ts.createUser(t, "ada@example.com", domain.RoleUser)
	tr := ts.createTree(t, bearer, 2)
	slot := ts.createSlot(t, bearer, "2026-03-02", "09:00", "10:00")

	added := ts.addTask(t, bearer, slot.ID, map[string]any{
		"type":           "TEXTBOOK",
		"topic_id":       tr.topics[0].ID,
		"title_snapshot": tr.topics[0].Title,
	})
	togglePath := "/api/v1/slots/" + slot.ID + "/tasks/" + added.Task.ID + "/toggle"

	resp := ts.api.Patch(togglePath+"?syncTopic=true", bearer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	result := decode[service.TaskToggleResult](t, resp.Body.Bytes())
	assert.True(t, result.Task.IsCompleted)
	require.NotNil(t, result.Topic)
	assert.True(t, result.Topic.Topic.IsCompleted)
	assert.Equal(t, domain.Counters{Total: 2, Completed: 1}, result.Topic.Book)

	// Un-completing the task leaves the topic completed.
	resp = ts.api.Patch(togglePath+"?syncTopic=true", bearer)
	require.Equal(t, http.StatusOK, resp.Code)
	result = decode[service.TaskToggleResult](t, resp.Body.Bytes())
	assert.False(t, result.Task.IsCompleted)
	assert.Nil(t, result.Topic)

	detail := ts.getBook(t, bearer, tr.book.ID)
	assert.Equal(t, 1, detail.CompletedTopics)
}

func TestToggleTask_WithoutSync(t *testing.T) {
	ts := setupTestServer(t)
	_, bearer := ts.createUser(t, "ada@example.com", domain.RoleUser)
	tr := ts.createTree(t, bearer, 1)
	slot := ts.createSlot(t, bearer, "2026-03-02", "09:00", "10:00")

	added := ts.addTask(t, bearer, slot.ID, map[string]any{
		"type":           "TEXTBOOK",
		"topic_id":       tr.topics[0].ID,
		"title_snapshot": tr.topics[0].Title,
	})

	resp := ts.api.Patch("/api/v1/slots/"+slot.ID+"/tasks/"+added.Task.ID+"/toggle", bearer)
	require.Equal(t, http.StatusOK, resp.Code)

	detail := ts.getBook(t, bearer, tr.book.ID)
	assert.Zero(t, detail.CompletedTopics)
}

func TestToggleTask_DeletedTopic(t *testing.T) {
	ts := setupTestServer(t)
	_, bearer := ts.createUser(t, "ada@example.com", domain.RoleUser)
	tr := ts.createTree(t, bearer, 1)
	slot := ts.createSlot(t, bearer, "2026-03-02", "09:00", "10:00")

	added := ts.addTask(t, bearer, slot.ID, map[string]any{
		"type":           "TEXTBOOK",
		"topic_id":       tr.topics[0].ID,
		"title_snapshot": tr.topics[0].Title,
	})
	resp := ts.api.Delete("/api/v1/topics/"+tr.topics[0].ID, bearer)
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Patch("/api/v1/slots/"+slot.ID+"/tasks/"+added.Task.ID+"/toggle?syncTopic=true", bearer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	result := decode[service.TaskToggleResult](t, resp.Body.Bytes())
	assert.True(t, result.Task.IsCompleted)
	assert.Nil(t, result.Topic)
}

func TestDeleteSlot(t *testing.T) {
	ts := setupTestServer(t)
	_, bearer := ts.createUser(t, "ada@example.com", domain.RoleUser)
	slot := ts.createSlot(t, bearer, "2026-03-02", "09:00", "10:00")

	resp := ts.api.Delete("/api/v1/slots/"+slot.ID, bearer)
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Get("/api/v1/slots/"+slot.ID, bearer)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	// The freed interval can be scheduled again.
	ts.createSlot(t, bearer, "2026-03-02", "09:00", "10:00")
}
