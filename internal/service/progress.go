package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	domainerrors "github.com/studytrackapp/studytrack-server/internal/errors"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

// ProgressService reads the denormalized counters into percentage summaries.
// It never writes.
type ProgressService struct {
	base
}

// NewProgressService creates a new progress service.
func NewProgressService(store store.Store, logger *slog.Logger) *ProgressService {
	return &ProgressService{base: newBase(store, nil, nil, logger)}
}

// Progress is a completed/total pair with its percentage.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

func progressOf(c domain.Counters) Progress {
	return Progress{Completed: c.Completed, Total: c.Total, Percent: c.Percent()}
}

// BookProgress is one book's topic completion.
type BookProgress struct {
	BookID      string   `json:"book_id"`
	Title       string   `json:"title"`
	Color       string   `json:"color"`
	IsFavourite bool     `json:"is_favourite"`
	Topics      Progress `json:"topics"`
}

// Overview sums topic completion over every book of a user.
type Overview struct {
	Books  []BookProgress `json:"books"`
	Topics Progress       `json:"topics"`
}

// ChapterProgress is one chapter's topic completion.
type ChapterProgress struct {
	ChapterID  string   `json:"chapter_id"`
	Title      string   `json:"title"`
	IsComplete bool     `json:"is_complete"`
	Topics     Progress `json:"topics"`
}

// SectionProgress is one section's chapter completion with its chapters.
type SectionProgress struct {
	SectionID string            `json:"section_id"`
	Title     string            `json:"title"`
	Chapters  Progress          `json:"chapters"`
	Breakdown []ChapterProgress `json:"breakdown"`
}

// BookBreakdown is a book's completion down to chapters.
type BookBreakdown struct {
	BookProgress
	Sections []SectionProgress `json:"sections"`
}

// DayProgress is task completion over one date's slots.
type DayProgress struct {
	Date  string         `json:"date"`
	Slots []SlotProgress `json:"slots"`
	Tasks Progress       `json:"tasks"`
}

// SlotProgress is one slot's task completion.
type SlotProgress struct {
	SlotID    string   `json:"slot_id"`
	Title     string   `json:"title"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Tasks     Progress `json:"tasks"`
}

func bookProgress(b *domain.Book) BookProgress {
	return BookProgress{
		BookID:      b.ID,
		Title:       b.Title,
		Color:       b.Color,
		IsFavourite: b.IsFavourite,
		Topics:      progressOf(b.Counters()),
	}
}

// Overview returns per-book progress plus the user's total.
func (s *ProgressService) Overview(ctx context.Context, userID string) (*Overview, error) {
	books, err := s.store.ListBooks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	var total domain.Counters
	out := &Overview{Books: make([]BookProgress, 0, len(books))}
	for _, b := range books {
		out.Books = append(out.Books, bookProgress(b))
		total.Total += b.TotalTopics
		total.Completed += b.CompletedTopics
	}
	out.Topics = progressOf(total)
	return out, nil
}

// Book returns a book's progress by section and chapter.
func (s *ProgressService) Book(ctx context.Context, userID, bookID string) (*BookBreakdown, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if book, err = guard(book, err, userID, kindBook); err != nil {
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

	bySection := make(map[string][]ChapterProgress, len(sections))
	for _, c := range chapters {
		bySection[c.SectionID] = append(bySection[c.SectionID], ChapterProgress{
			ChapterID:  c.ID,
			Title:      c.Title,
			IsComplete: c.IsComplete(),
			Topics:     progressOf(c.Counters()),
		})
	}

	out := &BookBreakdown{
		BookProgress: bookProgress(book),
		Sections:     make([]SectionProgress, 0, len(sections)),
	}
	for _, sec := range sections {
		out.Sections = append(out.Sections, SectionProgress{
			SectionID: sec.ID,
			Title:     sec.Title,
			Chapters:  progressOf(sec.Counters()),
			Breakdown: nonNil(bySection[sec.ID]),
		})
	}
	return out, nil
}

// Day returns task completion across one date's slots.
func (s *ProgressService) Day(ctx context.Context, userID, date string) (*DayProgress, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return nil, domainerrors.Validation("date must be in YYYY-MM-DD format.")
	}

	slots, err := s.store.ListSlots(ctx, userID, store.SlotFilter{Date: date})
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	var total domain.Counters
	out := &DayProgress{Date: date, Slots: make([]SlotProgress, 0, len(slots))}
	for _, sl := range slots {
		c := domain.Counters{Total: sl.TotalTasks, Completed: sl.CompletedTasks}
		out.Slots = append(out.Slots, SlotProgress{
			SlotID:    sl.ID,
			Title:     sl.Title,
			StartTime: sl.StartTime,
			EndTime:   sl.EndTime,
			Tasks:     progressOf(c),
		})
		total.Total += c.Total
		total.Completed += c.Completed
	}
	out.Tasks = progressOf(total)
	return out, nil
}
