// Package sse implements Server-Sent Events for live progress updates.
package sse

import (
	"time"

	"github.com/studytrackapp/studytrack-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventBookUpdated is sent when a book or its counters change.
	EventBookUpdated EventType = "book.updated"
	// EventBookDeleted is sent when a book and its subtree are removed.
	EventBookDeleted EventType = "book.deleted"

	// EventTopicToggled is sent when a topic's completion flips.
	EventTopicToggled EventType = "topic.toggled"

	// EventSlotUpdated is sent when a slot or its task list changes.
	EventSlotUpdated EventType = "slot.updated"
	// EventSlotDeleted is sent when a slot is removed.
	EventSlotDeleted EventType = "slot.deleted"
	// EventTaskToggled is sent when a slot task's completion flips.
	EventTaskToggled EventType = "task.toggled"

	// EventUserBlocked is sent to admins when a user is blocked or unblocked.
	EventUserBlocked EventType = "user.blocked"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// UserID restricts delivery to one user's clients. Empty means every client.
	UserID string `json:"-"`
}

// BookEventData is the payload for book.updated.
type BookEventData struct {
	Book *domain.Book `json:"book"`
}

// BookDeletedEventData is the payload for book.deleted.
type BookDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	BookID    string    `json:"book_id"`
}

// TopicToggledEventData carries the topic and the counters it moved.
type TopicToggledEventData struct {
	Topic   *domain.Topic   `json:"topic"`
	Chapter domain.Counters `json:"chapter"`
	Book    domain.Counters `json:"book"`
}

// SlotEventData is the payload for slot.updated.
type SlotEventData struct {
	Slot *domain.DailySlot `json:"slot"`
}

// SlotDeletedEventData is the payload for slot.deleted.
type SlotDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	SlotID    string    `json:"slot_id"`
	Date      string    `json:"date"`
}

// TaskToggledEventData is the payload for task.toggled.
type TaskToggledEventData struct {
	SlotID         string           `json:"slot_id"`
	Task           *domain.SlotTask `json:"task"`
	TotalTasks     int              `json:"total_tasks"`
	CompletedTasks int              `json:"completed_tasks"`
}

// UserBlockedEventData is the payload for user.blocked.
type UserBlockedEventData struct {
	UserID    string `json:"user_id"`
	IsBlocked bool   `json:"is_blocked"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

func newEvent(t EventType, userID string, data any) Event {
	return Event{Type: t, UserID: userID, Data: data, Timestamp: time.Now()}
}

// NewBookUpdatedEvent creates a book.updated event for the book's owner.
func NewBookUpdatedEvent(book *domain.Book) Event {
	return newEvent(EventBookUpdated, book.UserID, BookEventData{Book: book})
}

// NewBookDeletedEvent creates a book.deleted event.
func NewBookDeletedEvent(userID, bookID string) Event {
	return newEvent(EventBookDeleted, userID, BookDeletedEventData{BookID: bookID, DeletedAt: time.Now()})
}

// NewTopicToggledEvent creates a topic.toggled event.
func NewTopicToggledEvent(topic *domain.Topic, chapter, book domain.Counters) Event {
	return newEvent(EventTopicToggled, topic.UserID, TopicToggledEventData{Topic: topic, Chapter: chapter, Book: book})
}

// NewSlotUpdatedEvent creates a slot.updated event.
func NewSlotUpdatedEvent(slot *domain.DailySlot) Event {
	return newEvent(EventSlotUpdated, slot.UserID, SlotEventData{Slot: slot})
}

// NewSlotDeletedEvent creates a slot.deleted event.
func NewSlotDeletedEvent(slot *domain.DailySlot) Event {
	return newEvent(EventSlotDeleted, slot.UserID, SlotDeletedEventData{SlotID: slot.ID, Date: slot.Date, DeletedAt: time.Now()})
}

// NewTaskToggledEvent creates a task.toggled event.
func NewTaskToggledEvent(slot *domain.DailySlot, task *domain.SlotTask) Event {
	return newEvent(EventTaskToggled, slot.UserID, TaskToggledEventData{
		SlotID:         slot.ID,
		Task:           task,
		TotalTasks:     slot.TotalTasks,
		CompletedTasks: slot.CompletedTasks,
	})
}

// NewUserBlockedEvent creates an admin-only user.blocked event.
func NewUserBlockedEvent(userID string, blocked bool) Event {
	return newEvent(EventUserBlocked, "", UserBlockedEventData{UserID: userID, IsBlocked: blocked})
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{Type: EventHeartbeat, Data: HeartbeatEventData{ServerTime: now}, Timestamp: now}
}
