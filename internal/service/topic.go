package service

import (
	"context"
	"fmt"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/id"
	"github.com/studytrackapp/studytrack-server/internal/sse"
)

// CreateTopicRequest contains the fields for a new topic.
type CreateTopicRequest struct {
	Title       string `json:"title" validate:"required,max=300"`
	Description string `json:"description" validate:"max=4000"`
}

// UpdateTopicRequest is a partial update. Completion changes go through ToggleTopic.
type UpdateTopicRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=300"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=4000"`
}

// TopicToggleResult carries the toggled topic and the counters it moved.
type TopicToggleResult struct {
	Topic   *domain.Topic   `json:"topic"`
	Chapter domain.Counters `json:"chapter"`
	Book    domain.Counters `json:"book"`
}

func (s *HierarchyService) getTopic(ctx context.Context, userID, topicID string) (*domain.Topic, error) {
	topic, err := s.store.GetTopic(ctx, topicID)
	return guard(topic, err, userID, kindTopic)
}

// ListTopics returns a chapter's topics after checking the chapter.
func (s *HierarchyService) ListTopics(ctx context.Context, userID, chapterID string) ([]*domain.Topic, error) {
	if _, err := s.getChapter(ctx, userID, chapterID); err != nil {
		return nil, err
	}
	topics, err := s.store.ListTopicsByChapter(ctx, chapterID)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return nonNil(topics), nil
}

// GetTopic returns one topic owned by the caller.
func (s *HierarchyService) GetTopic(ctx context.Context, userID, topicID string) (*domain.Topic, error) {
	return s.getTopic(ctx, userID, topicID)
}

// CreateTopic adds an incomplete topic and grows the chapter and book totals.
func (s *HierarchyService) CreateTopic(ctx context.Context, userID, chapterID string, req CreateTopicRequest) (*domain.Topic, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	chapter, err := s.getChapter(ctx, userID, chapterID)
	if err != nil {
		return nil, err
	}

	topicID, err := id.Generate(id.PrefixTopic)
	if err != nil {
		return nil, fmt.Errorf("generate topic ID: %w", err)
	}

	topic := &domain.Topic{
		Syncable:    domain.Syncable{ID: topicID},
		UserID:      userID,
		BookID:      chapter.BookID,
		SectionID:   chapter.SectionID,
		ChapterID:   chapter.ID,
		Title:       req.Title,
		Description: req.Description,
	}
	s.stamp(&topic.Syncable)

	if err := s.store.CreateTopic(ctx, topic); err != nil {
		return nil, fmt.Errorf("create topic: %w", err)
	}
	if _, _, err := s.shift(ctx, topic, 1, 0); err != nil {
		return nil, err
	}

	s.search.IndexTopic(ctx, topic)
	s.refreshBook(ctx, topic.BookID)
	s.logger.Info("Topic created", "topic_id", topic.ID, "chapter_id", chapter.ID)
	return topic, nil
}

// UpdateTopic applies a partial update. Counters never move here.
func (s *HierarchyService) UpdateTopic(ctx context.Context, userID, topicID string, req UpdateTopicRequest) (*domain.Topic, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	topic, err := s.getTopic(ctx, userID, topicID)
	if err != nil {
		return nil, err
	}

	applyString(&topic.Title, req.Title)
	applyString(&topic.Description, req.Description)
	s.touch(&topic.Syncable)

	if err := s.store.UpdateTopic(ctx, topic); err != nil {
		return nil, fmt.Errorf("update topic: %w", err)
	}

	s.search.IndexTopic(ctx, topic)
	return topic, nil
}

// ToggleTopic flips completion and moves CompletedTopics on the chapter and book by one.
func (s *HierarchyService) ToggleTopic(ctx context.Context, userID, topicID string) (*TopicToggleResult, error) {
	topic, err := s.getTopic(ctx, userID, topicID)
	if err != nil {
		return nil, err
	}

	delta := topic.Toggle(s.now())
	s.touch(&topic.Syncable)

	if err := s.store.UpdateTopic(ctx, topic); err != nil {
		return nil, fmt.Errorf("update topic: %w", err)
	}

	chapter, book, err := s.shift(ctx, topic, 0, delta)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTopicToggle(ctx, topic.IsCompleted)
	s.search.IndexTopic(ctx, topic)
	s.events.Emit(sse.NewTopicToggledEvent(topic, chapter, book))
	s.refreshBook(ctx, topic.BookID)
	s.logger.Info("Topic toggled",
		"topic_id", topic.ID,
		"completed", topic.IsCompleted,
		"chapter_completed", chapter.Completed,
		"book_completed", book.Completed,
	)

	return &TopicToggleResult{Topic: topic, Chapter: chapter, Book: book}, nil
}

// DeleteTopic removes a topic and takes it off the chapter and book counters.
func (s *HierarchyService) DeleteTopic(ctx context.Context, userID, topicID string) error {
	topic, err := s.getTopic(ctx, userID, topicID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteTopic(ctx, topicID); err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}

	dCompleted := 0
	if topic.IsCompleted {
		dCompleted = -1
	}
	if _, _, err := s.shift(ctx, topic, -1, dCompleted); err != nil {
		return err
	}

	s.search.Remove(topic.ID)
	s.refreshBook(ctx, topic.BookID)
	s.logger.Info("Topic deleted", "topic_id", topic.ID, "chapter_id", topic.ChapterID)
	return nil
}

// shift applies a topic-level change to the chapter, the section's completed-chapter
// count when the chapter crosses the complete line, and the book, in that order.
func (s *HierarchyService) shift(ctx context.Context, topic *domain.Topic, dTotal, dCompleted int) (chapter, book domain.Counters, err error) {
	prev, chapter, err := s.store.AdjustChapterCounters(ctx, topic.ChapterID, dTotal, dCompleted)
	if err != nil {
		return chapter, book, fmt.Errorf("adjust chapter counters: %w", err)
	}

	if d := domain.CompletionDelta(prev, chapter); d != 0 {
		if _, _, err := s.store.AdjustSectionCounters(ctx, topic.SectionID, 0, d); err != nil {
			return chapter, book, fmt.Errorf("adjust section counters: %w", err)
		}
	}

	if _, book, err = s.store.AdjustBookCounters(ctx, topic.BookID, dTotal, dCompleted); err != nil {
		return chapter, book, fmt.Errorf("adjust book counters: %w", err)
	}
	return chapter, book, nil
}
