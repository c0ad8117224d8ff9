package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studytrackapp/studytrack-server/internal/domain"
)

func TestScenario_EndToEnd(t *testing.T) {
	ctx := context.Background()
	env := setupTest(t)
	h := env.hierarchy

	book, err := h.CreateBook(ctx, "user-u", CreateBookRequest{Title: "Anatomy", Color: "#3366ff"})
	require.NoError(t, err)
	assert.Equal(t, 0, book.TotalTopics)

	section, err := h.CreateSection(ctx, "user-u", book.ID, CreateSectionRequest{Title: "Limbs"})
	require.NoError(t, err)
	chapter, err := h.CreateChapter(ctx, "user-u", section.ID, CreateChapterRequest{Title: "Upper limb"})
	require.NoError(t, err)
	t1, err := h.CreateTopic(ctx, "user-u", chapter.ID, CreateTopicRequest{Title: "Brachial plexus"})
	require.NoError(t, err)
	t2, err := h.CreateTopic(ctx, "user-u", chapter.ID, CreateTopicRequest{Title: "Rotator cuff"})
	require.NoError(t, err)

	assert.Equal(t, 2, env.chapterCounters(t, chapter.ID).Total)
	assert.Equal(t, 2, env.bookCounters(t, book.ID).Total)

	_, err = h.ToggleTopic(ctx, "user-u", t1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, env.chapterCounters(t, chapter.ID).Completed)
	assert.Equal(t, 1, env.bookCounters(t, book.ID).Completed)

	slot, err := env.slots.CreateSlot(ctx, "user-u", CreateSlotRequest{
		Date: "2026-03-01", StartTime: "09:00", EndTime: "09:30", Title: "Morning review",
	})
	require.NoError(t, err)

	slot, task, err := env.slots.AddTask(ctx, "user-u", slot.ID, AddTaskRequest{
		Kind: string(domain.TaskKindTextbook), TopicID: t2.ID, TitleSnapshot: t2.Title,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, slot.TotalTasks)

	res, err := env.bridge.ToggleTaskWithTopic(ctx, "user-u", slot.ID, task.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Slot.CompletedTasks)
	assert.True(t, res.Task.IsCompleted)
	require.NotNil(t, res.Topic)
	assert.True(t, res.Topic.Topic.IsCompleted)

	got, err := h.GetTopic(ctx, "user-u", t2.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	assert.Equal(t, domain.Counters{Total: 2, Completed: 2}, env.chapterCounters(t, chapter.ID))
	assert.Equal(t, domain.Counters{Total: 2, Completed: 2}, env.bookCounters(t, book.ID))
	assert.Equal(t, domain.Counters{Total: 1, Completed: 1}, env.sectionCounters(t, section.ID))
}

func TestBridge_SkipsWhenNotApplicable(t *testing.T) {
	ctx := context.Background()
	env := setupTest(t)
	book, _, _, topics := env.seedHierarchy(t, "user-a", 2)
	slot := createSlot(t, env, "user-a", "2026-03-01", "09:00", "10:00", "Review")

	_, textbook, err := env.slots.AddTask(ctx, "user-a", slot.ID, AddTaskRequest{Kind: "TEXTBOOK", TopicID: topics[0].ID, TitleSnapshot: "t1"})
	require.NoError(t, err)
	_, custom, err := env.slots.AddTask(ctx, "user-a", slot.ID, AddTaskRequest{Kind: "CUSTOM", TitleSnapshot: "cards"})
	require.NoError(t, err)

	t.Run("sync off", func(t *testing.T) {
		res, err := env.bridge.ToggleTaskWithTopic(ctx, "user-a", slot.ID, textbook.ID, false)
		require.NoError(t, err)
		assert.True(t, res.Task.IsCompleted)
		assert.Nil(t, res.Topic)
		assert.Equal(t, 0, env.bookCounters(t, book.ID).Completed)
	})

	t.Run("uncompleting never syncs", func(t *testing.T) {
		res, err := env.bridge.ToggleTaskWithTopic(ctx, "user-a", slot.ID, textbook.ID, true)
		require.NoError(t, err)
		assert.False(t, res.Task.IsCompleted)
		assert.Nil(t, res.Topic)
		assert.Equal(t, 0, env.bookCounters(t, book.ID).Completed)
	})

	t.Run("custom task", func(t *testing.T) {
		res, err := env.bridge.ToggleTaskWithTopic(ctx, "user-a", slot.ID, custom.ID, true)
		require.NoError(t, err)
		assert.True(t, res.Task.IsCompleted)
		assert.Nil(t, res.Topic)
	})

	t.Run("topic already complete", func(t *testing.T) {
		_, err := env.hierarchy.ToggleTopic(ctx, "user-a", topics[0].ID)
		require.NoError(t, err)

		res, err := env.bridge.ToggleTaskWithTopic(ctx, "user-a", slot.ID, textbook.ID, true)
		require.NoError(t, err)
		assert.True(t, res.Task.IsCompleted)
		assert.Nil(t, res.Topic)

		topic, err := env.hierarchy.GetTopic(ctx, "user-a", topics[0].ID)
		require.NoError(t, err)
		assert.True(t, topic.IsCompleted)
		assert.Equal(t, 1, env.bookCounters(t, book.ID).Completed)
	})

	t.Run("deleted topic", func(t *testing.T) {
		_, task, err := env.slots.AddTask(ctx, "user-a", slot.ID, AddTaskRequest{Kind: "TEXTBOOK", TopicID: topics[1].ID, TitleSnapshot: "t2"})
		require.NoError(t, err)
		require.NoError(t, env.hierarchy.DeleteTopic(ctx, "user-a", topics[1].ID))

		res, err := env.bridge.ToggleTaskWithTopic(ctx, "user-a", slot.ID, task.ID, true)
		require.NoError(t, err)
		assert.True(t, res.Task.IsCompleted)
		assert.Equal(t, "t2", res.Task.TitleSnapshot)
		assert.Nil(t, res.Topic)
	})
}
