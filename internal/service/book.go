package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/id"
	"github.com/studytrackapp/studytrack-server/internal/sse"
	"github.com/studytrackapp/studytrack-server/internal/store"
	"github.com/studytrackapp/studytrack-server/internal/telemetry"
)

// HierarchyService owns Books, Sections, Chapters and Topics and keeps their counters.
//
// Book.TotalTopics/CompletedTopics and Chapter.TotalTopics/CompletedTopics count topics.
// Section.TotalChapters/CompletedChapters count chapters, where a chapter is complete when
// it has topics and all are done.
type HierarchyService struct {
	base
	search  *SearchService
	metrics *telemetry.Metrics
}

// NewHierarchyService creates a new hierarchy service.
func NewHierarchyService(
	store store.Store,
	search *SearchService,
	events store.EventEmitter,
	metrics *telemetry.Metrics,
	clock domain.Clock,
	logger *slog.Logger,
) *HierarchyService {
	return &HierarchyService{
		base:    newBase(store, events, clock, logger),
		search:  search,
		metrics: metrics,
	}
}

// CreateBookRequest contains the fields for a new book.
type CreateBookRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Color       string `json:"color" validate:"required,max=32"`
	Description string `json:"description" validate:"max=2000"`
	IsFavourite bool   `json:"is_favourite"`
}

// UpdateBookRequest is a partial update. Nil fields are left untouched.
type UpdateBookRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Color       *string `json:"color,omitempty" validate:"omitempty,min=1,max=32"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	IsFavourite *bool   `json:"is_favourite,omitempty"`
}

// BookDetail is a book with its full tree, ordered by creation.
type BookDetail struct {
	*domain.Book
	Sections []*SectionDetail `json:"sections"`
}

// SectionDetail is a section with its chapters.
type SectionDetail struct {
	*domain.Section
	Chapters []*ChapterDetail `json:"chapters"`
}

// ChapterDetail is a chapter with its topics.
type ChapterDetail struct {
	*domain.Chapter
	Topics []*domain.Topic `json:"topics"`
}

func (s *HierarchyService) getBook(ctx context.Context, userID, bookID string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	return guard(book, err, userID, kindBook)
}

// ListBooks returns the caller's books, favourites first.
func (s *HierarchyService) ListBooks(ctx context.Context, userID string) ([]*domain.Book, error) {
	books, err := s.store.ListBooks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// GetBook returns one book owned by the caller.
func (s *HierarchyService) GetBook(ctx context.Context, userID, bookID string) (*domain.Book, error) {
	return s.getBook(ctx, userID, bookID)
}

// GetBookDetail returns a book with its sections, chapters and topics.
func (s *HierarchyService) GetBookDetail(ctx context.Context, userID, bookID string) (*BookDetail, error) {
	book, err := s.getBook(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	sections, err := s.store.ListSectionsByBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	chapters, err := s.store.ListChaptersByBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	topics, err := s.store.ListTopicsByBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}

	topicsByChapter := make(map[string][]*domain.Topic)
	for _, t := range topics {
		topicsByChapter[t.ChapterID] = append(topicsByChapter[t.ChapterID], t)
	}
	chaptersBySection := make(map[string][]*ChapterDetail)
	for _, c := range chapters {
		chaptersBySection[c.SectionID] = append(chaptersBySection[c.SectionID], &ChapterDetail{
			Chapter: c,
			Topics:  nonNil(topicsByChapter[c.ID]),
		})
	}

	detail := &BookDetail{Book: book, Sections: make([]*SectionDetail, 0, len(sections))}
	for _, sec := range sections {
		detail.Sections = append(detail.Sections, &SectionDetail{
			Section:  sec,
			Chapters: nonNil(chaptersBySection[sec.ID]),
		})
	}
	return detail, nil
}

// CreateBook creates an empty book.
func (s *HierarchyService) CreateBook(ctx context.Context, userID string, req CreateBookRequest) (*domain.Book, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	bookID, err := id.Generate(id.PrefixBook)
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}

	book := &domain.Book{
		Syncable:    domain.Syncable{ID: bookID},
		UserID:      userID,
		Title:       req.Title,
		Color:       req.Color,
		Description: req.Description,
		IsFavourite: req.IsFavourite,
	}
	s.stamp(&book.Syncable)

	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	s.search.IndexBook(book)
	s.events.Emit(sse.NewBookUpdatedEvent(book))
	s.logger.Info("Book created", "book_id", book.ID, "user_id", userID)
	return book, nil
}

// UpdateBook applies a partial update. Counters are never touched here.
func (s *HierarchyService) UpdateBook(ctx context.Context, userID, bookID string, req UpdateBookRequest) (*domain.Book, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	book, err := s.getBook(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	applyString(&book.Title, req.Title)
	applyString(&book.Color, req.Color)
	applyString(&book.Description, req.Description)
	if req.IsFavourite != nil {
		book.IsFavourite = *req.IsFavourite
	}
	s.touch(&book.Syncable)

	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}

	s.search.IndexBook(book)
	s.events.Emit(sse.NewBookUpdatedEvent(book))
	return book, nil
}

// DeleteBook removes a book with all its topics, chapters and sections, in that order.
func (s *HierarchyService) DeleteBook(ctx context.Context, userID, bookID string) error {
	book, err := s.getBook(ctx, userID, bookID)
	if err != nil {
		return err
	}

	topics, err := s.store.DeleteTopicsByBook(ctx, bookID)
	if err != nil {
		return fmt.Errorf("delete topics: %w", err)
	}
	chapters, err := s.store.DeleteChaptersByBook(ctx, bookID)
	if err != nil {
		return fmt.Errorf("delete chapters: %w", err)
	}
	sections, err := s.store.DeleteSectionsByBook(ctx, bookID)
	if err != nil {
		return fmt.Errorf("delete sections: %w", err)
	}
	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	s.search.RemoveBook(ctx, bookID)
	s.events.Emit(sse.NewBookDeletedEvent(book.UserID, bookID))
	s.logger.Info("Book deleted",
		"book_id", bookID,
		"sections", sections,
		"chapters", chapters,
		"topics", topics,
	)
	return nil
}

// refreshBook re-reads a book after a counter change and publishes it.
func (s *HierarchyService) refreshBook(ctx context.Context, bookID string) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		s.logger.Warn("Failed to reload book after counter change", "book_id", bookID, "error", err)
		return
	}
	s.search.IndexBook(book)
	s.events.Emit(sse.NewBookUpdatedEvent(book))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
