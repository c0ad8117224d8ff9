package domain

import "time"

// Exam is a dated milestone the learner is studying towards.
type Exam struct {
	Syncable
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ExamDate    time.Time `json:"exam_date"`
}

// OwnerID implements Owned.
func (e *Exam) OwnerID() string { return e.UserID }

// DaysUntil returns whole calendar days from today to the exam date, negative when past.
func (e *Exam) DaysUntil(today time.Time) int {
	from := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(e.ExamDate.Year(), e.ExamDate.Month(), e.ExamDate.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
