package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/service"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

func (s *Server) registerSlotRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listSlots",
		Method:      http.MethodGet,
		Path:        "/api/v1/slots",
		Summary:     "List slots",
		Description: "Returns the caller's slots ordered by date and start time, optionally narrowed to a date or range",
		Tags:        []string{"Slots"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSlots)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createSlot",
		Method:        http.MethodPost,
		Path:          "/api/v1/slots",
		Summary:       "Create slot",
		Description:   "Schedules a slot. Overlapping another slot on the same date is a conflict.",
		Tags:          []string{"Slots"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateSlot)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSlot",
		Method:      http.MethodGet,
		Path:        "/api/v1/slots/{slotId}",
		Summary:     "Get slot",
		Tags:        []string{"Slots"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetSlot)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSlot",
		Method:      http.MethodPatch,
		Path:        "/api/v1/slots/{slotId}",
		Summary:     "Update slot",
		Description: "Updates the supplied fields and re-checks the interval when date or times change",
		Tags:        []string{"Slots"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateSlot)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteSlot",
		Method:      http.MethodDelete,
		Path:        "/api/v1/slots/{slotId}",
		Summary:     "Delete slot",
		Description: "Deletes a slot with its tasks. Linked topics are untouched.",
		Tags:        []string{"Slots"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteSlot)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addSlotTask",
		Method:        http.MethodPost,
		Path:          "/api/v1/slots/{slotId}/tasks",
		Summary:       "Add task",
		Description:   "Appends a CUSTOM or TEXTBOOK task to a slot",
		Tags:          []string{"Slots"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddTask)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSlotTask",
		Method:      http.MethodPatch,
		Path:        "/api/v1/slots/{slotId}/tasks/{taskId}",
		Summary:     "Update task",
		Tags:        []string{"Slots"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateTask)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteSlotTask",
		Method:      http.MethodDelete,
		Path:        "/api/v1/slots/{slotId}/tasks/{taskId}",
		Summary:     "Delete task",
		Description: "Removes a task and returns the updated slot",
		Tags:        []string{"Slots"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteTask)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleSlotTask",
		Method:      http.MethodPatch,
		Path:        "/api/v1/slots/{slotId}/tasks/{taskId}/toggle",
		Summary:     "Toggle task",
		Description: "Flips task completion. With syncTopic, completing a TEXTBOOK task also completes its topic.",
		Tags:        []string{"Slots"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleToggleTask)
}

// === DTOs ===

// ListSlotsInput narrows the slot listing.
type ListSlotsInput struct {
	Date string `query:"date" doc:"Exact date, YYYY-MM-DD"`
	From string `query:"from" doc:"Inclusive start date, YYYY-MM-DD"`
	To   string `query:"to" doc:"Inclusive end date, YYYY-MM-DD"`
}

// CreateSlotRequest is the request body for scheduling a slot.
type CreateSlotRequest struct {
	Date        string `json:"date" doc:"Date, YYYY-MM-DD"`
	StartTime   string `json:"start_time" doc:"Start time, HH:MM"`
	EndTime     string `json:"end_time" doc:"End time, HH:MM, after start"`
	Title       string `json:"title" doc:"Slot title"`
	Description string `json:"description,omitempty" doc:"Free-form description"`
}

// CreateSlotInput wraps the create slot request for Huma.
type CreateSlotInput struct {
	Body CreateSlotRequest
}

// SlotPathInput identifies a slot.
type SlotPathInput struct {
	SlotID string `path:"slotId" doc:"Slot ID"`
}

// UpdateSlotInput wraps the update slot request for Huma.
type UpdateSlotInput struct {
	SlotID string `path:"slotId" doc:"Slot ID"`
	Body   service.UpdateSlotRequest
}

// AddTaskRequest is the request body for adding a task.
// Fields are optional at the schema level so the service reports what is missing.
type AddTaskRequest struct {
	Type          string `json:"type,omitempty" doc:"CUSTOM or TEXTBOOK"`
	TopicID       string `json:"topic_id,omitempty" doc:"Linked topic, required for TEXTBOOK"`
	TitleSnapshot string `json:"title_snapshot,omitempty" doc:"Title shown on the task"`
	Description   string `json:"description,omitempty" doc:"Free-form description"`
}

// AddTaskInput wraps the add task request for Huma.
type AddTaskInput struct {
	SlotID string `path:"slotId" doc:"Slot ID"`
	Body   AddTaskRequest
}

// TaskPathInput identifies a task within a slot.
type TaskPathInput struct {
	SlotID string `path:"slotId" doc:"Slot ID"`
	TaskID string `path:"taskId" doc:"Task ID"`
}

// UpdateTaskInput wraps the update task request for Huma.
type UpdateTaskInput struct {
	SlotID string `path:"slotId" doc:"Slot ID"`
	TaskID string `path:"taskId" doc:"Task ID"`
	Body   service.UpdateTaskRequest
}

// ToggleTaskInput identifies a task and whether its topic follows.
type ToggleTaskInput struct {
	SlotID    string `path:"slotId" doc:"Slot ID"`
	TaskID    string `path:"taskId" doc:"Task ID"`
	SyncTopic bool   `query:"syncTopic" doc:"Also complete the linked topic of a TEXTBOOK task"`
}

// ListSlotsResponse contains the caller's slots.
type ListSlotsResponse struct {
	Slots []*domain.DailySlot `json:"slots" doc:"Slots ordered by date and start time"`
}

// ListSlotsOutput wraps the list slots response for Huma.
type ListSlotsOutput struct {
	Body ListSlotsResponse
}

// SlotOutput wraps a single slot for Huma.
type SlotOutput struct {
	Body *domain.DailySlot
}

// SlotTaskResponse carries a task with the slot that now holds it.
type SlotTaskResponse struct {
	Slot *domain.DailySlot `json:"slot" doc:"Updated slot with recomputed counters"`
	Task *domain.SlotTask  `json:"task" doc:"Affected task"`
}

// SlotTaskOutput wraps a slot task response for Huma.
type SlotTaskOutput struct {
	Body SlotTaskResponse
}

// TaskToggleOutput wraps a task toggle result for Huma.
type TaskToggleOutput struct {
	Body *service.TaskToggleResult
}

// === Handlers ===

func (s *Server) handleListSlots(ctx context.Context, input *ListSlotsInput) (*ListSlotsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	slots, err := s.services.Slots.ListSlots(ctx, userID, store.SlotFilter{
		Date: input.Date,
		From: input.From,
		To:   input.To,
	})
	if err != nil {
		return nil, err
	}
	return &ListSlotsOutput{Body: ListSlotsResponse{Slots: slots}}, nil
}

func (s *Server) handleCreateSlot(ctx context.Context, input *CreateSlotInput) (*SlotOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	slot, err := s.services.Slots.CreateSlot(ctx, userID, service.CreateSlotRequest{
		Date:        input.Body.Date,
		StartTime:   input.Body.StartTime,
		EndTime:     input.Body.EndTime,
		Title:       input.Body.Title,
		Description: input.Body.Description,
	})
	if err != nil {
		return nil, err
	}
	return &SlotOutput{Body: slot}, nil
}

func (s *Server) handleGetSlot(ctx context.Context, input *SlotPathInput) (*SlotOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	slot, err := s.services.Slots.GetSlot(ctx, userID, input.SlotID)
	if err != nil {
		return nil, err
	}
	return &SlotOutput{Body: slot}, nil
}

func (s *Server) handleUpdateSlot(ctx context.Context, input *UpdateSlotInput) (*SlotOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	slot, err := s.services.Slots.UpdateSlot(ctx, userID, input.SlotID, input.Body)
	if err != nil {
		return nil, err
	}
	return &SlotOutput{Body: slot}, nil
}

func (s *Server) handleDeleteSlot(ctx context.Context, input *SlotPathInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Slots.DeleteSlot(ctx, userID, input.SlotID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleAddTask(ctx context.Context, input *AddTaskInput) (*SlotTaskOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	slot, task, err := s.services.Slots.AddTask(ctx, userID, input.SlotID, service.AddTaskRequest{
		Kind:          input.Body.Type,
		TopicID:       input.Body.TopicID,
		TitleSnapshot: input.Body.TitleSnapshot,
		Description:   input.Body.Description,
	})
	if err != nil {
		return nil, err
	}
	return &SlotTaskOutput{Body: SlotTaskResponse{Slot: slot, Task: task}}, nil
}

func (s *Server) handleUpdateTask(ctx context.Context, input *UpdateTaskInput) (*SlotTaskOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	slot, task, err := s.services.Slots.UpdateTask(ctx, userID, input.SlotID, input.TaskID, input.Body)
	if err != nil {
		return nil, err
	}
	return &SlotTaskOutput{Body: SlotTaskResponse{Slot: slot, Task: task}}, nil
}

func (s *Server) handleDeleteTask(ctx context.Context, input *TaskPathInput) (*SlotOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	slot, err := s.services.Slots.DeleteTask(ctx, userID, input.SlotID, input.TaskID)
	if err != nil {
		return nil, err
	}
	return &SlotOutput{Body: slot}, nil
}

func (s *Server) handleToggleTask(ctx context.Context, input *ToggleTaskInput) (*TaskToggleOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Bridge.ToggleTaskWithTopic(ctx, userID, input.SlotID, input.TaskID, input.SyncTopic)
	if err != nil {
		return nil, err
	}
	return &TaskToggleOutput{Body: result}, nil
}
