package domain

import "time"

// Topic is the leaf of the hierarchy and the only thing a learner completes directly.
type Topic struct {
	Syncable
	UserID      string     `json:"user_id"`
	BookID      string     `json:"book_id"`
	SectionID   string     `json:"section_id"`
	ChapterID   string     `json:"chapter_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// OwnerID implements Owned.
func (t *Topic) OwnerID() string { return t.UserID }

// Toggle flips completion and keeps CompletedAt in step with it.
// It returns the completed-counter delta for the ancestors.
func (t *Topic) Toggle(now time.Time) int {
	t.IsCompleted = !t.IsCompleted
	if t.IsCompleted {
		t.CompletedAt = &now
		return 1
	}
	t.CompletedAt = nil
	return -1
}
