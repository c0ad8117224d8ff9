// Package store defines the persistence contract for the StudyTrack server.
// Implementations live in the badgerstore and sqlite subpackages.
package store

import (
	"context"

	"github.com/studytrackapp/studytrack-server/internal/domain"
)

// Store defines every persistence operation the services need.
//
// Each method touches one document or one parent-scoped set of documents. Multi-document
// cascades are sequenced by the service layer. The Adjust*Counters methods are atomic
// per document: they read, shift, clamp and write in one step and report the counters
// before and after.
type Store interface {
	// Lifecycle
	Close() error
	Ping(ctx context.Context) error

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*domain.User, error)
	GetUserByFirebaseUID(ctx context.Context, uid string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	ListUsers(ctx context.Context) ([]*domain.User, error)

	// Auth sessions
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	GetSessionByRefreshToken(ctx context.Context, tokenHash string) (*domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userID string) (int, error)
	DeleteExpiredSessions(ctx context.Context) (int, error)

	// Books
	CreateBook(ctx context.Context, book *domain.Book) error
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	ListBooks(ctx context.Context, userID string) ([]*domain.Book, error)
	UpdateBook(ctx context.Context, book *domain.Book) error
	DeleteBook(ctx context.Context, id string) error
	AdjustBookCounters(ctx context.Context, id string, dTotal, dCompleted int) (prev, next domain.Counters, err error)

	// Sections
	CreateSection(ctx context.Context, section *domain.Section) error
	GetSection(ctx context.Context, id string) (*domain.Section, error)
	ListSectionsByBook(ctx context.Context, bookID string) ([]*domain.Section, error)
	UpdateSection(ctx context.Context, section *domain.Section) error
	DeleteSection(ctx context.Context, id string) error
	DeleteSectionsByBook(ctx context.Context, bookID string) (int, error)
	AdjustSectionCounters(ctx context.Context, id string, dTotal, dCompleted int) (prev, next domain.Counters, err error)

	// Chapters
	CreateChapter(ctx context.Context, chapter *domain.Chapter) error
	GetChapter(ctx context.Context, id string) (*domain.Chapter, error)
	ListChaptersBySection(ctx context.Context, sectionID string) ([]*domain.Chapter, error)
	ListChaptersByBook(ctx context.Context, bookID string) ([]*domain.Chapter, error)
	UpdateChapter(ctx context.Context, chapter *domain.Chapter) error
	DeleteChapter(ctx context.Context, id string) error
	DeleteChaptersBySection(ctx context.Context, sectionID string) (int, error)
	DeleteChaptersByBook(ctx context.Context, bookID string) (int, error)
	AdjustChapterCounters(ctx context.Context, id string, dTotal, dCompleted int) (prev, next domain.Counters, err error)

	// Topics
	CreateTopic(ctx context.Context, topic *domain.Topic) error
	GetTopic(ctx context.Context, id string) (*domain.Topic, error)
	ListTopicsByChapter(ctx context.Context, chapterID string) ([]*domain.Topic, error)
	ListTopicsByBook(ctx context.Context, bookID string) ([]*domain.Topic, error)
	UpdateTopic(ctx context.Context, topic *domain.Topic) error
	DeleteTopic(ctx context.Context, id string) error
	DeleteTopicsByChapter(ctx context.Context, chapterID string) (int, error)
	DeleteTopicsBySection(ctx context.Context, sectionID string) (int, error)
	DeleteTopicsByBook(ctx context.Context, bookID string) (int, error)
	CountTopics(ctx context.Context, scope TopicScope) (domain.Counters, error)

	// Daily slots (tasks are embedded)
	CreateSlot(ctx context.Context, slot *domain.DailySlot) error
	GetSlot(ctx context.Context, id string) (*domain.DailySlot, error)
	ListSlots(ctx context.Context, userID string, filter SlotFilter) ([]*domain.DailySlot, error)
	UpdateSlot(ctx context.Context, slot *domain.DailySlot) error
	DeleteSlot(ctx context.Context, id string) error

	// Exams
	CreateExam(ctx context.Context, exam *domain.Exam) error
	GetExam(ctx context.Context, id string) (*domain.Exam, error)
	ListExams(ctx context.Context, userID string) ([]*domain.Exam, error)
	UpdateExam(ctx context.Context, exam *domain.Exam) error
	DeleteExam(ctx context.Context, id string) error
}

// TopicScope selects topics by exactly one parent. The most specific non-empty id wins.
type TopicScope struct {
	BookID    string
	SectionID string
	ChapterID string
}

// SlotFilter narrows ListSlots. Empty fields match everything.
type SlotFilter struct {
	Date string // exact YYYY-MM-DD
	From string // inclusive YYYY-MM-DD
	To   string // inclusive YYYY-MM-DD
}

// Matches reports whether a slot date passes the filter.
func (f SlotFilter) Matches(date string) bool {
	if f.Date != "" && date != f.Date {
		return false
	}
	if f.From != "" && date < f.From {
		return false
	}
	if f.To != "" && date > f.To {
		return false
	}
	return true
}
