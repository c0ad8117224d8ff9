package service

import (
	"context"
	"fmt"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/id"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

// CreateSectionRequest contains the fields for a new section.
type CreateSectionRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// UpdateSectionRequest is a partial update shared by sections, chapters and topics.
type UpdateSectionRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

func (s *HierarchyService) getSection(ctx context.Context, userID, sectionID string) (*domain.Section, error) {
	section, err := s.store.GetSection(ctx, sectionID)
	return guard(section, err, userID, kindSection)
}

// ListSections returns a book's sections after checking the book.
func (s *HierarchyService) ListSections(ctx context.Context, userID, bookID string) ([]*domain.Section, error) {
	if _, err := s.getBook(ctx, userID, bookID); err != nil {
		return nil, err
	}
	sections, err := s.store.ListSectionsByBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return nonNil(sections), nil
}

// GetSection returns one section owned by the caller.
func (s *HierarchyService) GetSection(ctx context.Context, userID, sectionID string) (*domain.Section, error) {
	return s.getSection(ctx, userID, sectionID)
}

// CreateSection adds an empty section to a book. No counters move.
func (s *HierarchyService) CreateSection(ctx context.Context, userID, bookID string, req CreateSectionRequest) (*domain.Section, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	book, err := s.getBook(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	sectionID, err := id.Generate(id.PrefixSection)
	if err != nil {
		return nil, fmt.Errorf("generate section ID: %w", err)
	}

	section := &domain.Section{
		Syncable:    domain.Syncable{ID: sectionID},
		UserID:      userID,
		BookID:      book.ID,
		Title:       req.Title,
		Description: req.Description,
	}
	s.stamp(&section.Syncable)

	if err := s.store.CreateSection(ctx, section); err != nil {
		return nil, fmt.Errorf("create section: %w", err)
	}

	s.logger.Info("Section created", "section_id", section.ID, "book_id", book.ID)
	return section, nil
}

// UpdateSection applies a partial update.
func (s *HierarchyService) UpdateSection(ctx context.Context, userID, sectionID string, req UpdateSectionRequest) (*domain.Section, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	section, err := s.getSection(ctx, userID, sectionID)
	if err != nil {
		return nil, err
	}

	titleChanged := applyString(&section.Title, req.Title)
	applyString(&section.Description, req.Description)
	s.touch(&section.Syncable)

	if err := s.store.UpdateSection(ctx, section); err != nil {
		return nil, fmt.Errorf("update section: %w", err)
	}

	if titleChanged {
		s.reindexBookTopics(ctx, section.BookID, store.TopicScope{SectionID: section.ID})
	}
	return section, nil
}

// DeleteSection removes a section with its topics and chapters, then takes the removed
// topics off the book's counters.
func (s *HierarchyService) DeleteSection(ctx context.Context, userID, sectionID string) error {
	section, err := s.getSection(ctx, userID, sectionID)
	if err != nil {
		return err
	}

	removed, err := s.store.CountTopics(ctx, store.TopicScope{SectionID: sectionID})
	if err != nil {
		return fmt.Errorf("count topics: %w", err)
	}
	chapters, err := s.store.ListChaptersBySection(ctx, sectionID)
	if err != nil {
		return fmt.Errorf("list chapters: %w", err)
	}

	if _, err := s.store.DeleteTopicsBySection(ctx, sectionID); err != nil {
		return fmt.Errorf("delete topics: %w", err)
	}
	if _, err := s.store.DeleteChaptersBySection(ctx, sectionID); err != nil {
		return fmt.Errorf("delete chapters: %w", err)
	}
	if err := s.store.DeleteSection(ctx, sectionID); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}

	if removed.Total > 0 || removed.Completed > 0 {
		if _, _, err := s.store.AdjustBookCounters(ctx, section.BookID, -removed.Total, -removed.Completed); err != nil {
			return fmt.Errorf("adjust book counters: %w", err)
		}
	}

	for _, ch := range chapters {
		s.search.RemoveChapter(ctx, ch.ID)
	}
	s.refreshBook(ctx, section.BookID)
	s.logger.Info("Section deleted",
		"section_id", sectionID,
		"book_id", section.BookID,
		"chapters", len(chapters),
		"topics", removed.Total,
	)
	return nil
}

// reindexBookTopics refreshes topic breadcrumbs after an ancestor was renamed.
func (s *HierarchyService) reindexBookTopics(ctx context.Context, bookID string, scope store.TopicScope) {
	if s.search == nil {
		return
	}

	var (
		topics []*domain.Topic
		err    error
	)
	if scope.ChapterID != "" {
		topics, err = s.store.ListTopicsByChapter(ctx, scope.ChapterID)
	} else {
		topics, err = s.store.ListTopicsByBook(ctx, bookID)
	}
	if err != nil {
		s.logger.Warn("Failed to list topics for reindex", "book_id", bookID, "error", err)
		return
	}
	for _, t := range topics {
		if scope.SectionID != "" && t.SectionID != scope.SectionID {
			continue
		}
		s.search.IndexTopic(ctx, t)
	}
}
