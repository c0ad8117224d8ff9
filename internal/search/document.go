// Package search provides per-user full-text search over books, topics and exams using Bleve.
package search

import (
	"strings"

	"github.com/studytrackapp/studytrack-server/internal/domain"
)

// DocType represents the type of document in the unified index.
type DocType string

// Document types for the search index.
const (
	DocTypeBook  DocType = "book"
	DocTypeTopic DocType = "topic"
	DocTypeExam  DocType = "exam"
)

// SearchDocument is the unified document stored in the index.
// Every document carries its owner so queries can be scoped to one user.
type SearchDocument struct {
	ID     string  `json:"id"`
	Type   DocType `json:"type"`
	UserID string  `json:"user_id"`

	// Name is the title of the book, topic or exam.
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Context is the breadcrumb shown under a hit, e.g. "Anatomy › Upper limb › Shoulder".
	Context string `json:"context,omitempty"`

	BookID      string `json:"book_id,omitempty"`
	ChapterID   string `json:"chapter_id,omitempty"`
	IsCompleted bool   `json:"is_completed,omitempty"`

	CreatedAt int64 `json:"created_at"` // Unix millis
	UpdatedAt int64 `json:"updated_at"` // Unix millis
}

// ToMap converts the document to a map whose keys match the index mapping.
func (d *SearchDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"type":       string(d.Type),
		"user_id":    d.UserID,
		"name":       d.Name,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.Context != "" {
		m["context"] = d.Context
	}
	if d.BookID != "" {
		m["book_id"] = d.BookID
	}
	if d.ChapterID != "" {
		m["chapter_id"] = d.ChapterID
	}
	if d.IsCompleted {
		m["is_completed"] = "true"
	}
	return m
}

// BookDocument converts a book.
func BookDocument(b *domain.Book) *SearchDocument {
	return &SearchDocument{
		ID:          b.ID,
		Type:        DocTypeBook,
		UserID:      b.UserID,
		Name:        b.Title,
		Description: b.Description,
		BookID:      b.ID,
		IsCompleted: b.Counters().IsComplete(),
		CreatedAt:   b.CreatedAt.UnixMilli(),
		UpdatedAt:   b.UpdatedAt.UnixMilli(),
	}
}

// TopicDocument converts a topic. The ancestor titles build the breadcrumb.
func TopicDocument(t *domain.Topic, ancestors ...string) *SearchDocument {
	return &SearchDocument{
		ID:          t.ID,
		Type:        DocTypeTopic,
		UserID:      t.UserID,
		Name:        t.Title,
		Description: t.Description,
		Context:     breadcrumb(ancestors),
		BookID:      t.BookID,
		ChapterID:   t.ChapterID,
		IsCompleted: t.IsCompleted,
		CreatedAt:   t.CreatedAt.UnixMilli(),
		UpdatedAt:   t.UpdatedAt.UnixMilli(),
	}
}

// ExamDocument converts an exam.
func ExamDocument(e *domain.Exam) *SearchDocument {
	return &SearchDocument{
		ID:          e.ID,
		Type:        DocTypeExam,
		UserID:      e.UserID,
		Name:        e.Title,
		Description: e.Description,
		Context:     e.ExamDate.Format(domain.DateLayout),
		CreatedAt:   e.CreatedAt.UnixMilli(),
		UpdatedAt:   e.UpdatedAt.UnixMilli(),
	}
}

func breadcrumb(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " › ")
}
