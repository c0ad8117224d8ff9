package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	domainerrors "github.com/studytrackapp/studytrack-server/internal/errors"
	"github.com/studytrackapp/studytrack-server/internal/id"
	"github.com/studytrackapp/studytrack-server/internal/sse"
	"github.com/studytrackapp/studytrack-server/internal/store"
	"github.com/studytrackapp/studytrack-server/internal/telemetry"
)

// SlotService schedules daily slots and the tasks embedded in them.
//
// Slots of one user on one date never overlap. Intervals are half-open, so a slot ending
// at 10:00 and one starting at 10:00 may coexist.
type SlotService struct {
	base
	metrics *telemetry.Metrics
}

// NewSlotService creates a new slot service.
func NewSlotService(store store.Store, events store.EventEmitter, metrics *telemetry.Metrics, clock domain.Clock, logger *slog.Logger) *SlotService {
	return &SlotService{
		base:    newBase(store, events, clock, logger),
		metrics: metrics,
	}
}

// CreateSlotRequest contains the fields for a new slot.
type CreateSlotRequest struct {
	Date        string `json:"date" validate:"required,date"`
	StartTime   string `json:"start_time" validate:"required,hhmm"`
	EndTime     string `json:"end_time" validate:"required,hhmm"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// UpdateSlotRequest is a partial update. Time fields are checked against their effective values.
type UpdateSlotRequest struct {
	Date        *string `json:"date,omitempty" validate:"omitempty,date"`
	StartTime   *string `json:"start_time,omitempty" validate:"omitempty,hhmm"`
	EndTime     *string `json:"end_time,omitempty" validate:"omitempty,hhmm"`
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// AddTaskRequest contains the fields for a new task. Kind and title are checked by hand
// so the messages match what clients display.
type AddTaskRequest struct {
	Kind          string `json:"type"`
	TopicID       string `json:"topic_id"`
	TitleSnapshot string `json:"title_snapshot" validate:"max=300"`
	Description   string `json:"description" validate:"max=2000"`
}

// UpdateTaskRequest is a partial update of a task's text. Kind and topic are fixed.
type UpdateTaskRequest struct {
	TitleSnapshot *string `json:"title_snapshot,omitempty" validate:"omitempty,min=1,max=300"`
	Description   *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// ConflictDetails names the slot a rejected interval collided with.
type ConflictDetails struct {
	SlotID    string `json:"slot_id"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// TaskToggleResult carries a toggled task with its slot and, when synced, the topic.
type TaskToggleResult struct {
	Slot  *domain.DailySlot  `json:"slot"`
	Task  *domain.SlotTask   `json:"task"`
	Topic *TopicToggleResult `json:"topic,omitempty"`
}

func (s *SlotService) getSlot(ctx context.Context, userID, slotID string) (*domain.DailySlot, error) {
	slot, err := s.store.GetSlot(ctx, slotID)
	return guard(slot, err, userID, kindSlot)
}

// ListSlots returns the caller's slots ordered by date then start time.
func (s *SlotService) ListSlots(ctx context.Context, userID string, filter store.SlotFilter) ([]*domain.DailySlot, error) {
	for _, d := range []string{filter.Date, filter.From, filter.To} {
		if d == "" {
			continue
		}
		if _, err := domain.ParseDate(d); err != nil {
			return nil, domainerrors.Validation("date must be in YYYY-MM-DD format.")
		}
	}

	slots, err := s.store.ListSlots(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return nonNil(slots), nil
}

// GetSlot returns one slot owned by the caller.
func (s *SlotService) GetSlot(ctx context.Context, userID, slotID string) (*domain.DailySlot, error) {
	return s.getSlot(ctx, userID, slotID)
}

// CreateSlot schedules a slot after checking its interval against the day's slots.
func (s *SlotService) CreateSlot(ctx context.Context, userID string, req CreateSlotRequest) (*domain.DailySlot, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	interval, err := checkInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, userID, req.Date, interval, ""); err != nil {
		return nil, err
	}

	slotID, err := id.Generate(id.PrefixSlot)
	if err != nil {
		return nil, fmt.Errorf("generate slot ID: %w", err)
	}

	slot := &domain.DailySlot{
		Syncable:    domain.Syncable{ID: slotID},
		UserID:      userID,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Title:       req.Title,
		Description: req.Description,
		Tasks:       []domain.SlotTask{},
	}
	s.stamp(&slot.Syncable)

	if err := s.store.CreateSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}

	s.events.Emit(sse.NewSlotUpdatedEvent(slot))
	s.logger.Info("Slot created",
		"slot_id", slot.ID,
		"date", slot.Date,
		"start", slot.StartTime,
		"end", slot.EndTime,
	)
	return slot, nil
}

// UpdateSlot applies a partial update. When any of date, start or end is supplied the
// effective interval is re-validated and re-scanned, ignoring the slot itself.
func (s *SlotService) UpdateSlot(ctx context.Context, userID, slotID string, req UpdateSlotRequest) (*domain.DailySlot, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	slot, err := s.getSlot(ctx, userID, slotID)
	if err != nil {
		return nil, err
	}

	date, start, end := slot.Date, slot.StartTime, slot.EndTime
	applyString(&date, req.Date)
	applyString(&start, req.StartTime)
	applyString(&end, req.EndTime)

	if req.Date != nil || req.StartTime != nil || req.EndTime != nil {
		interval, err := checkInterval(start, end)
		if err != nil {
			return nil, err
		}
		if err := s.checkOverlap(ctx, userID, date, interval, slot.ID); err != nil {
			return nil, err
		}
	}

	slot.Date, slot.StartTime, slot.EndTime = date, start, end
	applyString(&slot.Title, req.Title)
	applyString(&slot.Description, req.Description)
	s.touch(&slot.Syncable)

	if err := s.store.UpdateSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("update slot: %w", err)
	}

	s.events.Emit(sse.NewSlotUpdatedEvent(slot))
	return slot, nil
}

// DeleteSlot removes a slot and every task in it.
func (s *SlotService) DeleteSlot(ctx context.Context, userID, slotID string) error {
	slot, err := s.getSlot(ctx, userID, slotID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteSlot(ctx, slotID); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	s.events.Emit(sse.NewSlotDeletedEvent(slot))
	s.logger.Info("Slot deleted", "slot_id", slotID, "tasks", slot.TotalTasks)
	return nil
}

// AddTask appends a task. A TEXTBOOK task must point at a topic the caller owns.
func (s *SlotService) AddTask(ctx context.Context, userID, slotID string, req AddTaskRequest) (*domain.DailySlot, *domain.SlotTask, error) {
	kind := domain.TaskKind(req.Kind)
	if !kind.Valid() {
		return nil, nil, domainerrors.Validation("type must be TEXTBOOK or CUSTOM.")
	}
	if strings.TrimSpace(req.TitleSnapshot) == "" {
		return nil, nil, domainerrors.Validation("titleSnapshot is required.")
	}
	if kind == domain.TaskKindTextbook && req.TopicID == "" {
		return nil, nil, domainerrors.Validation("topicId is required for TEXTBOOK tasks.")
	}
	if err := validate.Validate(req); err != nil {
		return nil, nil, err
	}

	slot, err := s.getSlot(ctx, userID, slotID)
	if err != nil {
		return nil, nil, err
	}

	topicID := ""
	if kind == domain.TaskKindTextbook {
		topic, err := s.store.GetTopic(ctx, req.TopicID)
		if _, err := guard(topic, err, userID, kindTopic); err != nil {
			return nil, nil, err
		}
		topicID = req.TopicID
	}

	taskID, err := id.Generate(id.PrefixTask)
	if err != nil {
		return nil, nil, fmt.Errorf("generate task ID: %w", err)
	}

	slot.AddTask(domain.SlotTask{
		ID:            taskID,
		Kind:          kind,
		TopicID:       topicID,
		TitleSnapshot: req.TitleSnapshot,
		Description:   req.Description,
	})
	s.touch(&slot.Syncable)

	if err := s.store.UpdateSlot(ctx, slot); err != nil {
		return nil, nil, fmt.Errorf("update slot: %w", err)
	}

	task := &slot.Tasks[len(slot.Tasks)-1]
	s.events.Emit(sse.NewSlotUpdatedEvent(slot))
	s.logger.Info("Task added", "slot_id", slot.ID, "task_id", task.ID, "kind", task.Kind)
	return slot, task, nil
}

// UpdateTask edits a task's title snapshot or description.
func (s *SlotService) UpdateTask(ctx context.Context, userID, slotID, taskID string, req UpdateTaskRequest) (*domain.DailySlot, *domain.SlotTask, error) {
	if err := validate.Validate(req); err != nil {
		return nil, nil, err
	}

	slot, i, err := s.getTask(ctx, userID, slotID, taskID)
	if err != nil {
		return nil, nil, err
	}

	task := &slot.Tasks[i]
	applyString(&task.TitleSnapshot, req.TitleSnapshot)
	applyString(&task.Description, req.Description)
	s.touch(&slot.Syncable)

	if err := s.store.UpdateSlot(ctx, slot); err != nil {
		return nil, nil, fmt.Errorf("update slot: %w", err)
	}

	s.events.Emit(sse.NewSlotUpdatedEvent(slot))
	return slot, task, nil
}

// DeleteTask removes a task, keeping the order of the rest.
func (s *SlotService) DeleteTask(ctx context.Context, userID, slotID, taskID string) (*domain.DailySlot, error) {
	slot, i, err := s.getTask(ctx, userID, slotID, taskID)
	if err != nil {
		return nil, err
	}

	slot.RemoveTask(i)
	s.touch(&slot.Syncable)

	if err := s.store.UpdateSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("update slot: %w", err)
	}

	s.events.Emit(sse.NewSlotUpdatedEvent(slot))
	s.logger.Info("Task deleted", "slot_id", slot.ID, "task_id", taskID)
	return slot, nil
}

// ToggleTask flips a task and recounts the slot's completed tasks.
func (s *SlotService) ToggleTask(ctx context.Context, userID, slotID, taskID string) (*domain.DailySlot, *domain.SlotTask, error) {
	slot, i, err := s.getTask(ctx, userID, slotID, taskID)
	if err != nil {
		return nil, nil, err
	}

	task := slot.ToggleTask(i, s.now())
	s.touch(&slot.Syncable)

	if err := s.store.UpdateSlot(ctx, slot); err != nil {
		return nil, nil, fmt.Errorf("update slot: %w", err)
	}

	s.metrics.RecordTaskToggle(ctx, string(task.Kind), task.IsCompleted)
	s.events.Emit(sse.NewTaskToggledEvent(slot, task))
	s.logger.Info("Task toggled",
		"slot_id", slot.ID,
		"task_id", task.ID,
		"completed", task.IsCompleted,
		"slot_completed", slot.CompletedTasks,
	)
	return slot, task, nil
}

func (s *SlotService) getTask(ctx context.Context, userID, slotID, taskID string) (*domain.DailySlot, int, error) {
	slot, err := s.getSlot(ctx, userID, slotID)
	if err != nil {
		return nil, -1, err
	}
	i := slot.TaskIndex(taskID)
	if i < 0 {
		return nil, -1, domainerrors.NotFound("Task not found.")
	}
	return slot, i, nil
}

// checkOverlap scans the user's slots on date for one that intersects interval.
// excludeID skips the slot being edited.
func (s *SlotService) checkOverlap(ctx context.Context, userID, date string, interval domain.Interval, excludeID string) error {
	sameDay, err := s.store.ListSlots(ctx, userID, store.SlotFilter{Date: date})
	if err != nil {
		return fmt.Errorf("list slots: %w", err)
	}

	for _, other := range sameDay {
		if other.ID == excludeID {
			continue
		}
		otherInterval, err := other.Interval()
		if err != nil {
			s.logger.Warn("Skipping slot with unreadable times", "slot_id", other.ID, "error", err)
			continue
		}
		if !interval.Overlaps(otherInterval) {
			continue
		}

		s.metrics.RecordSlotConflict(ctx)
		return domainerrors.Conflictf("This slot overlaps with \"%s\" (%s–%s).",
			other.Title, other.StartTime, other.EndTime).
			WithDetails(ConflictDetails{
				SlotID:    other.ID,
				Title:     other.Title,
				Date:      other.Date,
				StartTime: other.StartTime,
				EndTime:   other.EndTime,
			})
	}
	return nil
}

// checkInterval parses both ends and requires start < end.
func checkInterval(start, end string) (domain.Interval, error) {
	interval, err := domain.ParseInterval(start, end)
	if err != nil {
		return domain.Interval{}, domainerrors.Validation(err.Error())
	}
	if !interval.Valid() {
		return domain.Interval{}, domainerrors.Validation("startTime must be before endTime.")
	}
	return interval, nil
}
