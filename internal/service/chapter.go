package service

import (
	"context"
	"fmt"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/id"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

// CreateChapterRequest contains the fields for a new chapter.
type CreateChapterRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// UpdateChapterRequest is a partial update.
type UpdateChapterRequest = UpdateSectionRequest

func (s *HierarchyService) getChapter(ctx context.Context, userID, chapterID string) (*domain.Chapter, error) {
	chapter, err := s.store.GetChapter(ctx, chapterID)
	return guard(chapter, err, userID, kindChapter)
}

// ListChapters returns a section's chapters after checking the section.
func (s *HierarchyService) ListChapters(ctx context.Context, userID, sectionID string) ([]*domain.Chapter, error) {
	if _, err := s.getSection(ctx, userID, sectionID); err != nil {
		return nil, err
	}
	chapters, err := s.store.ListChaptersBySection(ctx, sectionID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	return nonNil(chapters), nil
}

// GetChapter returns one chapter owned by the caller.
func (s *HierarchyService) GetChapter(ctx context.Context, userID, chapterID string) (*domain.Chapter, error) {
	return s.getChapter(ctx, userID, chapterID)
}

// CreateChapter adds an empty chapter to a section and bumps Section.TotalChapters.
func (s *HierarchyService) CreateChapter(ctx context.Context, userID, sectionID string, req CreateChapterRequest) (*domain.Chapter, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	section, err := s.getSection(ctx, userID, sectionID)
	if err != nil {
		return nil, err
	}

	chapterID, err := id.Generate(id.PrefixChapter)
	if err != nil {
		return nil, fmt.Errorf("generate chapter ID: %w", err)
	}

	chapter := &domain.Chapter{
		Syncable:    domain.Syncable{ID: chapterID},
		UserID:      userID,
		BookID:      section.BookID,
		SectionID:   section.ID,
		Title:       req.Title,
		Description: req.Description,
	}
	s.stamp(&chapter.Syncable)

	if err := s.store.CreateChapter(ctx, chapter); err != nil {
		return nil, fmt.Errorf("create chapter: %w", err)
	}
	if _, _, err := s.store.AdjustSectionCounters(ctx, section.ID, 1, 0); err != nil {
		return nil, fmt.Errorf("adjust section counters: %w", err)
	}

	s.logger.Info("Chapter created", "chapter_id", chapter.ID, "section_id", section.ID)
	return chapter, nil
}

// UpdateChapter applies a partial update.
func (s *HierarchyService) UpdateChapter(ctx context.Context, userID, chapterID string, req UpdateChapterRequest) (*domain.Chapter, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	chapter, err := s.getChapter(ctx, userID, chapterID)
	if err != nil {
		return nil, err
	}

	titleChanged := applyString(&chapter.Title, req.Title)
	applyString(&chapter.Description, req.Description)
	s.touch(&chapter.Syncable)

	if err := s.store.UpdateChapter(ctx, chapter); err != nil {
		return nil, fmt.Errorf("update chapter: %w", err)
	}

	if titleChanged {
		s.reindexBookTopics(ctx, chapter.BookID, store.TopicScope{ChapterID: chapter.ID})
	}
	return chapter, nil
}

// DeleteChapter removes a chapter and its topics, then shrinks the section and book.
//
// The book loses the chapter's stored TotalTopics and the completed topics counted at
// delete time. The section loses one chapter, and one completed chapter if it was complete.
func (s *HierarchyService) DeleteChapter(ctx context.Context, userID, chapterID string) error {
	chapter, err := s.getChapter(ctx, userID, chapterID)
	if err != nil {
		return err
	}

	counted, err := s.store.CountTopics(ctx, store.TopicScope{ChapterID: chapterID})
	if err != nil {
		return fmt.Errorf("count topics: %w", err)
	}
	wasComplete := 0
	if chapter.IsComplete() {
		wasComplete = 1
	}

	if _, err := s.store.DeleteTopicsByChapter(ctx, chapterID); err != nil {
		return fmt.Errorf("delete topics: %w", err)
	}
	if err := s.store.DeleteChapter(ctx, chapterID); err != nil {
		return fmt.Errorf("delete chapter: %w", err)
	}

	if _, _, err := s.store.AdjustSectionCounters(ctx, chapter.SectionID, -1, -wasComplete); err != nil {
		return fmt.Errorf("adjust section counters: %w", err)
	}
	if _, _, err := s.store.AdjustBookCounters(ctx, chapter.BookID, -chapter.TotalTopics, -counted.Completed); err != nil {
		return fmt.Errorf("adjust book counters: %w", err)
	}

	s.search.RemoveChapter(ctx, chapterID)
	s.refreshBook(ctx, chapter.BookID)
	s.logger.Info("Chapter deleted",
		"chapter_id", chapterID,
		"section_id", chapter.SectionID,
		"topics", counted.Total,
	)
	return nil
}
