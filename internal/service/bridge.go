package service

import (
	"context"
	"log/slog"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

// TopicTaskBridge couples a TEXTBOOK task toggle with its linked topic on request.
type TopicTaskBridge struct {
	slots     *SlotService
	hierarchy *HierarchyService
	store     store.Store
	logger    *slog.Logger
}

// NewTopicTaskBridge creates a new bridge.
func NewTopicTaskBridge(slots *SlotService, hierarchy *HierarchyService, store store.Store, logger *slog.Logger) *TopicTaskBridge {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TopicTaskBridge{
		slots:     slots,
		hierarchy: hierarchy,
		store:     store,
		logger:    logger,
	}
}

// ToggleTaskWithTopic toggles a task, then also completes its topic when syncTopic is set,
// the task is TEXTBOOK, the task just became complete, and the topic is not yet complete.
// Un-completing a task never touches the topic.
//
// A linked topic that has since been deleted leaves the task toggle in place and returns
// no topic.
func (b *TopicTaskBridge) ToggleTaskWithTopic(ctx context.Context, userID, slotID, taskID string, syncTopic bool) (*TaskToggleResult, error) {
	slot, task, err := b.slots.ToggleTask(ctx, userID, slotID, taskID)
	if err != nil {
		return nil, err
	}
	result := &TaskToggleResult{Slot: slot, Task: task}

	if !syncTopic || task.Kind != domain.TaskKindTextbook || !task.IsCompleted || task.TopicID == "" {
		return result, nil
	}

	topic, err := b.store.GetTopic(ctx, task.TopicID)
	if store.IsNotFound(err) {
		b.logger.Warn("Linked topic missing, skipping sync", "task_id", task.ID, "topic_id", task.TopicID)
		return result, nil
	}
	if _, err := guard(topic, err, userID, kindTopic); err != nil {
		return nil, err
	}
	if topic.IsCompleted {
		return result, nil
	}

	toggled, err := b.hierarchy.ToggleTopic(ctx, userID, topic.ID)
	if err != nil {
		return nil, err
	}
	result.Topic = toggled

	b.logger.Info("Topic synced from task", "task_id", task.ID, "topic_id", topic.ID)
	return result, nil
}
