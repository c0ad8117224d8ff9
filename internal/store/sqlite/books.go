package sqlite

import (
	"context"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

const bookColumns = `id, created_at, updated_at, user_id, title, color, description,
	total_topics, completed_topics, is_favourite`

func scanBook(sc scanner) (*domain.Book, error) {
	var (
		b           domain.Book
		createdAt   string
		updatedAt   string
		isFavourite int
	)
	err := sc.Scan(
		&b.ID,
		&createdAt,
		&updatedAt,
		&b.UserID,
		&b.Title,
		&b.Color,
		&b.Description,
		&b.TotalTopics,
		&b.CompletedTopics,
		&isFavourite,
	)
	if err != nil {
		return nil, err
	}
	if err := parseSyncable(&b.Syncable, createdAt, updatedAt); err != nil {
		return nil, err
	}
	b.IsFavourite = isFavourite != 0
	return &b, nil
}

// CreateBook inserts a new book.
func (s *Store) CreateBook(ctx context.Context, b *domain.Book) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO books (`+bookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		formatTime(b.CreatedAt),
		formatTime(b.UpdatedAt),
		b.UserID,
		b.Title,
		b.Color,
		b.Description,
		b.TotalTopics,
		b.CompletedTopics,
		boolToInt(b.IsFavourite),
	)
	return mapConstraint(err)
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	return queryOne(ctx, s.db, scanBook, store.ErrBookNotFound,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
}

// ListBooks returns a user's books, favourites first, then by title.
func (s *Store) ListBooks(ctx context.Context, userID string) ([]*domain.Book, error) {
	books, err := queryAll(ctx, s.db, scanBook,
		`SELECT `+bookColumns+` FROM books WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	store.SortBooks(books)
	return books, nil
}

// UpdateBook replaces a book's editable fields and counters.
func (s *Store) UpdateBook(ctx context.Context, b *domain.Book) error {
	return s.execAffected(ctx, store.ErrBookNotFound, `UPDATE books SET
		updated_at = ?, title = ?, color = ?, description = ?,
		total_topics = ?, completed_topics = ?, is_favourite = ?
		WHERE id = ?`,
		formatTime(b.UpdatedAt),
		b.Title,
		b.Color,
		b.Description,
		b.TotalTopics,
		b.CompletedTopics,
		boolToInt(b.IsFavourite),
		b.ID,
	)
}

// DeleteBook removes a book row only. Children must be deleted first.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	return err
}

// AdjustBookCounters shifts a book's topic counters atomically.
func (s *Store) AdjustBookCounters(ctx context.Context, id string, dTotal, dCompleted int) (prev, next domain.Counters, err error) {
	return s.adjustCounters(ctx, "books", "total_topics", "completed_topics", id, dTotal, dCompleted, store.ErrBookNotFound)
}
