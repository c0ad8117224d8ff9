package store

import (
	"cmp"
	"slices"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/normalize"
)

// Both backends return lists in these orders so callers never depend on the engine.

// SortBooks orders favourites first, then by accent-folded title, then by id.
func SortBooks(books []*domain.Book) {
	slices.SortFunc(books, func(a, b *domain.Book) int {
		if a.IsFavourite != b.IsFavourite {
			if a.IsFavourite {
				return -1
			}
			return 1
		}
		return cmp.Or(
			cmp.Compare(normalize.SortKey(a.Title), normalize.SortKey(b.Title)),
			cmp.Compare(a.ID, b.ID),
		)
	})
}

// SortSlots orders by date, then start time, then id.
func SortSlots(slots []*domain.DailySlot) {
	slices.SortFunc(slots, func(a, b *domain.DailySlot) int {
		return cmp.Or(
			cmp.Compare(a.Date, b.Date),
			cmp.Compare(a.StartTime, b.StartTime),
			cmp.Compare(a.ID, b.ID),
		)
	})
}

// SortExams orders by exam date, then id.
func SortExams(exams []*domain.Exam) {
	slices.SortFunc(exams, func(a, b *domain.Exam) int {
		return cmp.Or(a.ExamDate.Compare(b.ExamDate), cmp.Compare(a.ID, b.ID))
	})
}
