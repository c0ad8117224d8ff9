package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	domainerrors "github.com/studytrackapp/studytrack-server/internal/errors"
	"github.com/studytrackapp/studytrack-server/internal/search"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

// SearchService keeps the search index in step with the store and runs queries.
//
// Index writes happen after the store write succeeded. Failures are logged and never
// fail the mutation; `studyctl search reindex` repairs drift. A nil *SearchService
// indexes nothing.
type SearchService struct {
	index  *search.SearchIndex
	store  store.Store
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, store store.Store, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		store:  store,
		logger: logger,
	}
}

// SearchRequest is a user-scoped query.
type SearchRequest struct {
	Query  string   `json:"q" validate:"max=200"`
	Types  []string `json:"types" validate:"dive,oneof=book topic exam"`
	BookID string   `json:"book_id"`
	Limit  int      `json:"limit" validate:"gte=0,lte=100"`
	Offset int      `json:"offset" validate:"gte=0"`
}

// Search runs a query over the caller's books, topics and exams.
func (s *SearchService) Search(ctx context.Context, userID string, req SearchRequest) (*search.SearchResult, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	if s == nil || s.index == nil {
		return nil, domainerrors.Unavailable("Search is not available.")
	}

	params := search.SearchParams{
		UserID: userID,
		Query:  req.Query,
		BookID: req.BookID,
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	for _, t := range req.Types {
		params.Types = append(params.Types, search.DocType(t))
	}
	return s.index.Search(ctx, params)
}

// IndexBook indexes or refreshes a book document.
func (s *SearchService) IndexBook(book *domain.Book) {
	if s == nil {
		return
	}
	if err := s.index.IndexDocument(search.BookDocument(book)); err != nil {
		s.logger.Warn("Failed to index book", "book_id", book.ID, "error", err)
	}
}

// IndexTopic indexes a topic with its Book › Section › Chapter breadcrumb.
func (s *SearchService) IndexTopic(ctx context.Context, topic *domain.Topic) {
	if s == nil {
		return
	}
	doc, err := s.topicDocument(ctx, topic)
	if err != nil {
		s.logger.Warn("Failed to build topic document", "topic_id", topic.ID, "error", err)
		return
	}
	if err := s.index.IndexDocument(doc); err != nil {
		s.logger.Warn("Failed to index topic", "topic_id", topic.ID, "error", err)
	}
}

// IndexExam indexes or refreshes an exam document.
func (s *SearchService) IndexExam(exam *domain.Exam) {
	if s == nil {
		return
	}
	if err := s.index.IndexDocument(search.ExamDocument(exam)); err != nil {
		s.logger.Warn("Failed to index exam", "exam_id", exam.ID, "error", err)
	}
}

// Remove drops a single document.
func (s *SearchService) Remove(id string) {
	if s == nil {
		return
	}
	if err := s.index.DeleteDocument(id); err != nil {
		s.logger.Warn("Failed to remove search document", "id", id, "error", err)
	}
}

// RemoveBook drops a book and all of its topics.
func (s *SearchService) RemoveBook(ctx context.Context, bookID string) {
	if s == nil {
		return
	}
	if _, err := s.index.DeleteByBook(ctx, bookID); err != nil {
		s.logger.Warn("Failed to remove book from search", "book_id", bookID, "error", err)
	}
}

// RemoveChapter drops every topic of a chapter.
func (s *SearchService) RemoveChapter(ctx context.Context, chapterID string) {
	if s == nil {
		return
	}
	if _, err := s.index.DeleteByChapter(ctx, chapterID); err != nil {
		s.logger.Warn("Failed to remove chapter from search", "chapter_id", chapterID, "error", err)
	}
}

// ReindexResult summarizes a full rebuild.
type ReindexResult struct {
	Users  int `json:"users"`
	Books  int `json:"books"`
	Topics int `json:"topics"`
	Exams  int `json:"exams"`
}

// Reindex rebuilds the index from the store for every user.
func (s *SearchService) Reindex(ctx context.Context) (*ReindexResult, error) {
	if s == nil || s.index == nil {
		return nil, domainerrors.Unavailable("Search is not available.")
	}
	if err := s.index.Rebuild(); err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	result := &ReindexResult{Users: len(users)}
	var docs []*search.SearchDocument
	for _, u := range users {
		books, err := s.store.ListBooks(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("list books for %s: %w", u.ID, err)
		}
		for _, b := range books {
			docs = append(docs, search.BookDocument(b))
			result.Books++

			bookDocs, err := s.bookTopicDocuments(ctx, b)
			if err != nil {
				return nil, err
			}
			docs = append(docs, bookDocs...)
			result.Topics += len(bookDocs)
		}

		exams, err := s.store.ListExams(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("list exams for %s: %w", u.ID, err)
		}
		for _, e := range exams {
			docs = append(docs, search.ExamDocument(e))
		}
		result.Exams += len(exams)
	}

	if err := s.index.IndexDocuments(docs); err != nil {
		return nil, fmt.Errorf("index documents: %w", err)
	}

	s.logger.Info("Search index rebuilt",
		"users", result.Users,
		"books", result.Books,
		"topics", result.Topics,
		"exams", result.Exams,
	)
	return result, nil
}

// bookTopicDocuments builds topic documents for a whole book with one query per level.
func (s *SearchService) bookTopicDocuments(ctx context.Context, book *domain.Book) ([]*search.SearchDocument, error) {
	sections, err := s.store.ListSectionsByBook(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	chapters, err := s.store.ListChaptersByBook(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	topics, err := s.store.ListTopicsByBook(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}

	sectionTitles := make(map[string]string, len(sections))
	for _, sec := range sections {
		sectionTitles[sec.ID] = sec.Title
	}
	chapterTitles := make(map[string]string, len(chapters))
	for _, ch := range chapters {
		chapterTitles[ch.ID] = ch.Title
	}

	docs := make([]*search.SearchDocument, 0, len(topics))
	for _, t := range topics {
		docs = append(docs, search.TopicDocument(t, book.Title, sectionTitles[t.SectionID], chapterTitles[t.ChapterID]))
	}
	return docs, nil
}

func (s *SearchService) topicDocument(ctx context.Context, topic *domain.Topic) (*search.SearchDocument, error) {
	book, err := s.store.GetBook(ctx, topic.BookID)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	section, err := s.store.GetSection(ctx, topic.SectionID)
	if err != nil {
		return nil, fmt.Errorf("get section: %w", err)
	}
	chapter, err := s.store.GetChapter(ctx, topic.ChapterID)
	if err != nil {
		return nil, fmt.Errorf("get chapter: %w", err)
	}
	return search.TopicDocument(topic, book.Title, section.Title, chapter.Title), nil
}
