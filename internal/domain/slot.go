package domain

import "time"

// TaskKind distinguishes free-form tasks from tasks that point at a textbook Topic.
type TaskKind string

const (
	// TaskKindCustom is a free-form task.
	TaskKindCustom TaskKind = "CUSTOM"
	// TaskKindTextbook references a Topic by id.
	TaskKindTextbook TaskKind = "TEXTBOOK"
)

// Valid reports whether k is a known kind.
func (k TaskKind) Valid() bool {
	return k == TaskKindCustom || k == TaskKindTextbook
}

// SlotTask is embedded in a DailySlot and dies with it.
// TitleSnapshot is captured when the task is added and never synced from the Topic.
type SlotTask struct {
	ID            string     `json:"id"`
	Kind          TaskKind   `json:"type"`
	TopicID       string     `json:"topic_id,omitempty"`
	TitleSnapshot string     `json:"title_snapshot"`
	Description   string     `json:"description,omitempty"`
	IsCompleted   bool       `json:"is_completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// DailySlot is one non-overlapping time block on a calendar date.
type DailySlot struct {
	Syncable
	UserID         string     `json:"user_id"`
	Date           string     `json:"date"`
	StartTime      string     `json:"start_time"`
	EndTime        string     `json:"end_time"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Tasks          []SlotTask `json:"tasks"`
	TotalTasks     int        `json:"total_tasks"`
	CompletedTasks int        `json:"completed_tasks"`
}

// OwnerID implements Owned.
func (s *DailySlot) OwnerID() string { return s.UserID }

// Interval parses the stored start and end times.
func (s *DailySlot) Interval() (Interval, error) {
	return ParseInterval(s.StartTime, s.EndTime)
}

// TaskIndex returns the position of the task with the given id, or -1.
func (s *DailySlot) TaskIndex(taskID string) int {
	for i := range s.Tasks {
		if s.Tasks[i].ID == taskID {
			return i
		}
	}
	return -1
}

// AddTask appends a task and refreshes TotalTasks.
func (s *DailySlot) AddTask(task SlotTask) {
	s.Tasks = append(s.Tasks, task)
	s.TotalTasks = len(s.Tasks)
}

// RemoveTask deletes the task at index i, keeping order.
// CompletedTasks drops by one if the task was completed and never goes below zero.
func (s *DailySlot) RemoveTask(i int) SlotTask {
	removed := s.Tasks[i]
	s.Tasks = append(s.Tasks[:i], s.Tasks[i+1:]...)
	s.TotalTasks = len(s.Tasks)
	if removed.IsCompleted {
		s.CompletedTasks = max(s.CompletedTasks-1, 0)
	}
	return removed
}

// ToggleTask flips the task at index i and recounts CompletedTasks from scratch.
func (s *DailySlot) ToggleTask(i int, now time.Time) *SlotTask {
	task := &s.Tasks[i]
	task.IsCompleted = !task.IsCompleted
	if task.IsCompleted {
		task.CompletedAt = &now
	} else {
		task.CompletedAt = nil
	}
	s.RecountTasks()
	return task
}

// RecountTasks recomputes both task counters from the task list.
func (s *DailySlot) RecountTasks() {
	completed := 0
	for i := range s.Tasks {
		if s.Tasks[i].IsCompleted {
			completed++
		}
	}
	s.TotalTasks = len(s.Tasks)
	s.CompletedTasks = completed
}
