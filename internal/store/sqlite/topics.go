package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

const topicColumns = `id, created_at, updated_at, user_id, book_id, section_id, chapter_id,
	title, description, is_completed, completed_at`

func scanTopic(sc scanner) (*domain.Topic, error) {
	var (
		t           domain.Topic
		createdAt   string
		updatedAt   string
		isCompleted int
		completedAt sql.NullString
	)
	err := sc.Scan(
		&t.ID,
		&createdAt,
		&updatedAt,
		&t.UserID,
		&t.BookID,
		&t.SectionID,
		&t.ChapterID,
		&t.Title,
		&t.Description,
		&isCompleted,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := parseSyncable(&t.Syncable, createdAt, updatedAt); err != nil {
		return nil, err
	}
	t.IsCompleted = isCompleted != 0
	if t.CompletedAt, err = parseNullableTime(completedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTopic inserts a new topic.
func (s *Store) CreateTopic(ctx context.Context, t *domain.Topic) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO topics (`+topicColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
		t.UserID,
		t.BookID,
		t.SectionID,
		t.ChapterID,
		t.Title,
		t.Description,
		boolToInt(t.IsCompleted),
		nullTimeString(t.CompletedAt),
	)
	return mapConstraint(err)
}

// GetTopic retrieves a topic by ID.
func (s *Store) GetTopic(ctx context.Context, id string) (*domain.Topic, error) {
	return queryOne(ctx, s.db, scanTopic, store.ErrTopicNotFound,
		`SELECT `+topicColumns+` FROM topics WHERE id = ?`, id)
}

// ListTopicsByChapter returns a chapter's topics in creation order.
func (s *Store) ListTopicsByChapter(ctx context.Context, chapterID string) ([]*domain.Topic, error) {
	return queryAll(ctx, s.db, scanTopic,
		`SELECT `+topicColumns+` FROM topics WHERE chapter_id = ? ORDER BY created_at, id`, chapterID)
}

// ListTopicsByBook returns every topic of a book in creation order.
func (s *Store) ListTopicsByBook(ctx context.Context, bookID string) ([]*domain.Topic, error) {
	return queryAll(ctx, s.db, scanTopic,
		`SELECT `+topicColumns+` FROM topics WHERE book_id = ? ORDER BY created_at, id`, bookID)
}

// UpdateTopic replaces a topic's editable fields and completion state.
func (s *Store) UpdateTopic(ctx context.Context, t *domain.Topic) error {
	return s.execAffected(ctx, store.ErrTopicNotFound, `UPDATE topics SET
		updated_at = ?, title = ?, description = ?, is_completed = ?, completed_at = ?
		WHERE id = ?`,
		formatTime(t.UpdatedAt),
		t.Title,
		t.Description,
		boolToInt(t.IsCompleted),
		nullTimeString(t.CompletedAt),
		t.ID,
	)
}

// DeleteTopic removes a topic row.
func (s *Store) DeleteTopic(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM topics WHERE id = ?`, id)
	return err
}

// DeleteTopicsByChapter removes every topic of a chapter.
func (s *Store) DeleteTopicsByChapter(ctx context.Context, chapterID string) (int, error) {
	return s.execCount(ctx, `DELETE FROM topics WHERE chapter_id = ?`, chapterID)
}

// DeleteTopicsBySection removes every topic of a section.
func (s *Store) DeleteTopicsBySection(ctx context.Context, sectionID string) (int, error) {
	return s.execCount(ctx, `DELETE FROM topics WHERE section_id = ?`, sectionID)
}

// DeleteTopicsByBook removes every topic of a book.
func (s *Store) DeleteTopicsByBook(ctx context.Context, bookID string) (int, error) {
	return s.execCount(ctx, `DELETE FROM topics WHERE book_id = ?`, bookID)
}

// CountTopics counts total and completed topics under one parent.
func (s *Store) CountTopics(ctx context.Context, scope store.TopicScope) (domain.Counters, error) {
	var column, value string
	switch {
	case scope.ChapterID != "":
		column, value = "chapter_id", scope.ChapterID
	case scope.SectionID != "":
		column, value = "section_id", scope.SectionID
	case scope.BookID != "":
		column, value = "book_id", scope.BookID
	default:
		return domain.Counters{}, fmt.Errorf("count topics: empty scope")
	}

	var c domain.Counters
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(is_completed), 0) FROM topics WHERE `+column+` = ?`, value,
	).Scan(&c.Total, &c.Completed)
	if err != nil {
		return domain.Counters{}, fmt.Errorf("count topics: %w", err)
	}
	return c, nil
}
