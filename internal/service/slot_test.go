package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	domainerrors "github.com/studytrackapp/studytrack-server/internal/errors"
	"github.com/studytrackapp/studytrack-server/internal/sse"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

func createSlot(t *testing.T, env *testEnv, userID, date, start, end, title string) *domain.DailySlot {
	t.Helper()
	slot, err := env.slots.CreateSlot(context.Background(), userID, CreateSlotRequest{
		Date: date, StartTime: start, EndTime: end, Title: title,
	})
	require.NoError(t, err)
	return slot
}

func TestCreateSlot_RejectsOverlap(t *testing.T) {
	ctx := context.Background()
	env := setupTest(t)
	existing := createSlot(t, env, "user-a", "2026-02-10", "09:00", "10:00", "Anatomy")

	_, err := env.slots.CreateSlot(ctx, "user-a", CreateSlotRequest{
		Date: "2026-02-10", StartTime: "09:30", EndTime: "10:30", Title: "Physiology",
	})
	e := requireCode(t, err, domainerrors.CodeConflict)
	assert.Equal(t, "This slot overlaps with \"Anatomy\" (09:00–10:00).", e.Message)
	details, ok := e.Details.(ConflictDetails)
	require.True(t, ok)
	assert.Equal(t, existing.ID, details.SlotID)

	// Touching endpoints are fine.
	createSlot(t, env, "user-a", "2026-02-10", "10:00", "11:00", "Physiology")
	// Another day or another user never collides.
	createSlot(t, env, "user-a", "2026-02-11", "09:30", "10:30", "Physiology")
	createSlot(t, env, "user-b", "2026-02-10", "09:30", "10:30", "Physiology")
}

func TestCreateSlot_Validation(t *testing.T) {
	ctx := context.Background()
	env := setupTest(t)

	tests := []struct {
		name    string
		req     CreateSlotRequest
		message string
	}{
		{
			name:    "start after end",
			req:     CreateSlotRequest{Date: "2026-02-10", StartTime: "11:00", EndTime: "10:00", Title: "x"},
			message: "startTime must be before endTime.",
		},
		{
			name:    "empty interval",
			req:     CreateSlotRequest{Date: "2026-02-10", StartTime: "10:00", EndTime: "10:00", Title: "x"},
			message: "startTime must be before endTime.",
		},
		{
			name: "unpadded hour",
			req:  CreateSlotRequest{Date: "2026-02-10", StartTime: "9:00", EndTime: "10:00", Title: "x"},
		},
		{
			name: "bad date",
			req:  CreateSlotRequest{Date: "2026-13-40", StartTime: "09:00", EndTime: "10:00", Title: "x"},
		},
		{
			name: "missing title",
			req:  CreateSlotRequest{Date: "2026-02-10", StartTime: "09:00", EndTime: "10:00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.slots.CreateSlot(ctx, "user-a", tt.req)
			e := requireCode(t, err, domainerrors.CodeValidation)
			if tt.message != "" {
				assert.Equal(t, tt.message, e.Message)
			}
		})
	}
}

func TestUpdateSlot_ExcludesSelf(t *testing.T) {
	ctx := context.Background()
	env := setupTest(t)
	slot := createSlot(t, env, "user-a", "2026-02-10", "09:00", "10:00", "Anatomy")
	createSlot(t, env, "user-a", "2026-02-10", "11:00", "12:00", "Physiology")

	start, end := "09:00", "10:00"
	_, err := env.slots.UpdateSlot(ctx, "user-a", slot.ID, UpdateSlotRequest{StartTime: &start, EndTime: &end})
	require.NoError(t, err)

	// Growing into its own range is fine.
	end = "10:45"
	updated, err := env.slots.UpdateSlot(ctx, "user-a", slot.ID, UpdateSlotRequest{EndTime: &end})
	require.NoError(t, err)
	assert.Equal(t, "09:00", updated.StartTime)
	assert.Equal(t, "10:45", updated.EndTime)

	// Growing into the neighbour is not.
	end = "11:30"
	_, err = env.slots.UpdateSlot(ctx, "user-a", slot.ID, UpdateSlotRequest{EndTime: &end})
	requireCode(t, err, domainerrors.CodeConflict)

	// The effective interval is checked even when only one end is sent.
	start = "10:50"
	_, err = env.slots.UpdateSlot(ctx, "user-a", slot.ID, UpdateSlotRequest{StartTime: &start})
	e := requireCode(t, err, domainerrors.CodeValidation)
	assert.Equal(t, "startTime must be before endTime.", e.Message)

	// Moving to a free day re-scans that day.
	date := "2026-02-12"
	moved, err := env.slots.UpdateSlot(ctx, "user-a", slot.ID, UpdateSlotRequest{Date: &date})
	require.NoError(t, err)
	assert.Equal(t, "2026-02-12", moved.Date)
}

func TestListSlots_OrderAndFilter(t *testing.T) {
	ctx := context.Background()
	env := setupTest(t)
	createSlot(t, env, "user-a", "2026-02-11", "08:00", "09:00", "C")
	createSlot(t, env, "user-a", "2026-02-10", "14:00", "15:00", "B")
	createSlot(t, env, "user-a", "2026-02-10", "07:00", "08:00", "A")
	createSlot(t, env, "user-b", "2026-02-10", "07:00", "08:00", "other")

	all, err := env.slots.ListSlots(ctx, "user-a", store.SlotFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{all[0].Title, all[1].Title, all[2].Title})

	day, err := env.slots.ListSlots(ctx, "user-a", store.SlotFilter{Date: "2026-02-10"})
	require.NoError(t, err)
	assert.Len(t, day, 2)

	_, err = env.slots.ListSlots(ctx, "user-a", store.SlotFilter{Date: "10-02-2026"})
	requireCode(t, err, domainerrors.CodeValidation)
}

func TestAddTask_Validation(t *testing.T) {
	ctx := context.Background()
	env := setupTest(t)
	slot := createSlot(t, env, "user-a", "2026-02-10", "09:00", "10:00", "Review")
	_, _, _, otherTopics := env.seedHierarchy(t, "user-b", 1)

	tests := []struct {
		name string
		req  AddTaskRequest
		code domainerrors.Code
		msg  string
	}{
		{"bad kind", AddTaskRequest{Kind: "READING", TitleSnapshot: "x"}, domainerrors.CodeValidation, "type must be TEXTBOOK or CUSTOM."},
		{"missing title", AddTaskRequest{Kind: "CUSTOM", TitleSnapshot: "  "}, domainerrors.CodeValidation, "titleSnapshot is required."},
		{"textbook without topic", AddTaskRequest{Kind: "TEXTBOOK", TitleSnapshot: "x"}, domainerrors.CodeValidation, "topicId is required for TEXTBOOK tasks."},
		{"missing topic", AddTaskRequest{Kind: "TEXTBOOK", TopicID: "topic-missing", TitleSnapshot: "x"}, domainerrors.CodeNotFound, "Topic not found."},
		{"foreign topic", AddTaskRequest{Kind: "TEXTBOOK", TopicID: otherTopics[0].ID, TitleSnapshot: "x"}, domainerrors.CodeForbidden, "You do not have access to this topic."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.slots.AddTask(ctx, "user-a", slot.ID, tt.req)
			e := requireCode(t, err, tt.code)
			assert.Equal(t, tt.msg, e.Message)
		})
	}

	got, err := env.slots.GetSlot(ctx, "user-a", slot.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tasks)
	assert.Equal(t, 0, got.TotalTasks)
}

func TestTasks_CountersStayInRange(t *testing.T) {
	ctx := context.Background()
	env := setupTest(t)
	slot := createSlot(t, env, "user-a", "2026-02-10", "09:00", "10:00", "Review")

	check := func(s *domain.DailySlot) {
		t.Helper()
		assert.Equal(t, len(s.Tasks), s.TotalTasks)
		assert.GreaterOrEqual(t, s.CompletedTasks, 0)
		assert.LessOrEqual(t, s.CompletedTasks, s.TotalTasks)
	}

	var ids []string
	for _, title := range []string{"flashcards", "past paper", "notes"} {
		s, task, err := env.slots.AddTask(ctx, "user-a", slot.ID, AddTaskRequest{Kind: "CUSTOM", TitleSnapshot: title})
		require.NoError(t, err)
		check(s)
		ids = append(ids, task.ID)
	}

	s, task, err := env.slots.ToggleTask(ctx, "user-a", slot.ID, ids[0])
	require.NoError(t, err)
	assert.True(t, task.IsCompleted)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, 1, s.CompletedTasks)
	check(s)

	s, _, err = env.slots.ToggleTask(ctx, "user-a", slot.ID, ids[1])
	require.NoError(t, err)
	assert.Equal(t, 2, s.CompletedTasks)

	s, err = env.slots.DeleteTask(ctx, "user-a", slot.ID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalTasks)
	assert.Equal(t, 1, s.CompletedTasks)
	check(s)

	s, task, err = env.slots.ToggleTask(ctx, "user-a", slot.ID, ids[1])
	require.NoError(t, err)
	assert.False(t, task.IsCompleted)
	assert.Nil(t, task.CompletedAt)
	assert.Equal(t, 0, s.CompletedTasks)

	s, err = env.slots.DeleteTask(ctx, "user-a", slot.ID, ids[1])
	require.NoError(t, err)
	check(s)
	assert.Equal(t, 0, s.CompletedTasks)
	require.Len(t, s.Tasks, 1)
	assert.Equal(t, "notes", s.Tasks[0].TitleSnapshot)

	_, err = env.slots.DeleteTask(ctx, "user-a", slot.ID, ids[1])
	e := requireCode(t, err, domainerrors.CodeNotFound)
	assert.Equal(t, "Task not found.", e.Message)

	assert.Contains(t, env.events.types(), sse.EventTaskToggled)
}

func TestUpdateTask_Partial(t *testing.T) {
	ctx := context.Background()
	env := setupTest(t)
	slot := createSlot(t, env, "user-a", "2026-02-10", "09:00", "10:00", "Review")
	_, task, err := env.slots.AddTask(ctx, "user-a", slot.ID, AddTaskRequest{Kind: "CUSTOM", TitleSnapshot: "cards", Description: "deck 1"})
	require.NoError(t, err)

	title := "cards, deck 2"
	_, updated, err := env.slots.UpdateTask(ctx, "user-a", slot.ID, task.ID, UpdateTaskRequest{TitleSnapshot: &title})
	require.NoError(t, err)
	assert.Equal(t, "cards, deck 2", updated.TitleSnapshot)
	assert.Equal(t, "deck 1", updated.Description)

	_, _, err = env.slots.UpdateTask(ctx, "user-a", slot.ID, "task-missing", UpdateTaskRequest{TitleSnapshot: &title})
	requireCode(t, err, domainerrors.CodeNotFound)
}

func TestDeleteSlot_RemovesTasks(t *testing.T) {
	ctx := context.Background()
	env := setupTest(t)
	slot := createSlot(t, env, "user-a", "2026-02-10", "09:00", "10:00", "Review")
	_, _, err := env.slots.AddTask(ctx, "user-a", slot.ID, AddTaskRequest{Kind: "CUSTOM", TitleSnapshot: "cards"})
	require.NoError(t, err)

	require.NoError(t, env.slots.DeleteSlot(ctx, "user-a", slot.ID))
	_, err = env.slots.GetSlot(ctx, "user-a", slot.ID)
	requireCode(t, err, domainerrors.CodeNotFound)

	// The freed interval can be booked again.
	createSlot(t, env, "user-a", "2026-02-10", "09:00", "10:00", "Review again")
}
