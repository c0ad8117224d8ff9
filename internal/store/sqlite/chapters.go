package sqlite

import (
	"context"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

const chapterColumns = `id, created_at, updated_at, user_id, book_id, section_id, title, description,
	total_topics, completed_topics`

func scanChapter(sc scanner) (*domain.Chapter, error) {
	var (
		c         domain.Chapter
		createdAt string
		updatedAt string
	)
	err := sc.Scan(
		&c.ID,
		&createdAt,
		&updatedAt,
		&c.UserID,
		&c.BookID,
		&c.SectionID,
		&c.Title,
		&c.Description,
		&c.TotalTopics,
		&c.CompletedTopics,
	)
	if err != nil {
		return nil, err
	}
	if err := parseSyncable(&c.Syncable, createdAt, updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateChapter inserts a new chapter.
func (s *Store) CreateChapter(ctx context.Context, c *domain.Chapter) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO chapters (`+chapterColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
		c.UserID,
		c.BookID,
		c.SectionID,
		c.Title,
		c.Description,
		c.TotalTopics,
		c.CompletedTopics,
	)
	return mapConstraint(err)
}

// GetChapter retrieves a chapter by ID.
func (s *Store) GetChapter(ctx context.Context, id string) (*domain.Chapter, error) {
	return queryOne(ctx, s.db, scanChapter, store.ErrChapterNotFound,
		`SELECT `+chapterColumns+` FROM chapters WHERE id = ?`, id)
}

// ListChaptersBySection returns a section's chapters in creation order.
func (s *Store) ListChaptersBySection(ctx context.Context, sectionID string) ([]*domain.Chapter, error) {
	return queryAll(ctx, s.db, scanChapter,
		`SELECT `+chapterColumns+` FROM chapters WHERE section_id = ? ORDER BY created_at, id`, sectionID)
}

// ListChaptersByBook returns every chapter of a book in creation order.
func (s *Store) ListChaptersByBook(ctx context.Context, bookID string) ([]*domain.Chapter, error) {
	return queryAll(ctx, s.db, scanChapter,
		`SELECT `+chapterColumns+` FROM chapters WHERE book_id = ? ORDER BY created_at, id`, bookID)
}

// UpdateChapter replaces a chapter's editable fields and counters.
func (s *Store) UpdateChapter(ctx context.Context, c *domain.Chapter) error {
	return s.execAffected(ctx, store.ErrChapterNotFound, `UPDATE chapters SET
		updated_at = ?, title = ?, description = ?, total_topics = ?, completed_topics = ?
		WHERE id = ?`,
		formatTime(c.UpdatedAt),
		c.Title,
		c.Description,
		c.TotalTopics,
		c.CompletedTopics,
		c.ID,
	)
}

// DeleteChapter removes a chapter row only.
func (s *Store) DeleteChapter(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chapters WHERE id = ?`, id)
	return err
}

// DeleteChaptersBySection removes every chapter of a section.
func (s *Store) DeleteChaptersBySection(ctx context.Context, sectionID string) (int, error) {
	return s.execCount(ctx, `DELETE FROM chapters WHERE section_id = ?`, sectionID)
}

// DeleteChaptersByBook removes every chapter of a book.
func (s *Store) DeleteChaptersByBook(ctx context.Context, bookID string) (int, error) {
	return s.execCount(ctx, `DELETE FROM chapters WHERE book_id = ?`, bookID)
}

// AdjustChapterCounters shifts a chapter's topic counters atomically.
func (s *Store) AdjustChapterCounters(ctx context.Context, id string, dTotal, dCompleted int) (prev, next domain.Counters, err error) {
	return s.adjustCounters(ctx, "chapters", "total_topics", "completed_topics", id, dTotal, dCompleted, store.ErrChapterNotFound)
}
