package sqlite

import (
	"context"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

const sectionColumns = `id, created_at, updated_at, user_id, book_id, title, description,
	total_chapters, completed_chapters`

func scanSection(sc scanner) (*domain.Section, error) {
	var (
		x         domain.Section
		createdAt string
		updatedAt string
	)
	err := sc.Scan(
		&x.ID,
		&createdAt,
		&updatedAt,
		&x.UserID,
		&x.BookID,
		&x.Title,
		&x.Description,
		&x.TotalChapters,
		&x.CompletedChapters,
	)
	if err != nil {
		return nil, err
	}
	if err := parseSyncable(&x.Syncable, createdAt, updatedAt); err != nil {
		return nil, err
	}
	return &x, nil
}

// CreateSection inserts a new section.
func (s *Store) CreateSection(ctx context.Context, x *domain.Section) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sections (`+sectionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		x.ID,
		formatTime(x.CreatedAt),
		formatTime(x.UpdatedAt),
		x.UserID,
		x.BookID,
		x.Title,
		x.Description,
		x.TotalChapters,
		x.CompletedChapters,
	)
	return mapConstraint(err)
}

// GetSection retrieves a section by ID.
func (s *Store) GetSection(ctx context.Context, id string) (*domain.Section, error) {
	return queryOne(ctx, s.db, scanSection, store.ErrSectionNotFound,
		`SELECT `+sectionColumns+` FROM sections WHERE id = ?`, id)
}

// ListSectionsByBook returns a book's sections in creation order.
func (s *Store) ListSectionsByBook(ctx context.Context, bookID string) ([]*domain.Section, error) {
	return queryAll(ctx, s.db, scanSection,
		`SELECT `+sectionColumns+` FROM sections WHERE book_id = ? ORDER BY created_at, id`, bookID)
}

// UpdateSection replaces a section's editable fields and counters.
func (s *Store) UpdateSection(ctx context.Context, x *domain.Section) error {
	return s.execAffected(ctx, store.ErrSectionNotFound, `UPDATE sections SET
		updated_at = ?, title = ?, description = ?, total_chapters = ?, completed_chapters = ?
		WHERE id = ?`,
		formatTime(x.UpdatedAt),
		x.Title,
		x.Description,
		x.TotalChapters,
		x.CompletedChapters,
		x.ID,
	)
}

// DeleteSection removes a section row only.
func (s *Store) DeleteSection(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sections WHERE id = ?`, id)
	return err
}

// DeleteSectionsByBook removes every section of a book.
func (s *Store) DeleteSectionsByBook(ctx context.Context, bookID string) (int, error) {
	return s.execCount(ctx, `DELETE FROM sections WHERE book_id = ?`, bookID)
}

// AdjustSectionCounters shifts a section's chapter counters atomically.
func (s *Store) AdjustSectionCounters(ctx context.Context, id string, dTotal, dCompleted int) (prev, next domain.Counters, err error) {
	return s.adjustCounters(ctx, "sections", "total_chapters", "completed_chapters", id, dTotal, dCompleted, store.ErrSectionNotFound)
}
