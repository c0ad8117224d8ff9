// Package badgerstore implements store.Store on an embedded Badger key-value database.
//
// Every entity is a JSON document under its own key prefix. Unique secondary indexes
// (email, refresh token hash) map a value to one id; lookup keys map a parent id to
// many children and drive the List*By* and cascade Delete*By* methods.
package badgerstore

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/normalize"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

const (
	prefixUser    = "user:"
	prefixSession = "session:"
	prefixBook    = "book:"
	prefixSection = "section:"
	prefixChapter = "chapter:"
	prefixTopic   = "topic:"
	prefixSlot    = "slot:"
	prefixExam    = "exam:"
)

// Lookup and index names.
const (
	byUser     = "user"
	byBook     = "book"
	bySection  = "section"
	byChapter  = "chapter"
	byEmail    = "email"
	byGoogle   = "google"
	byFirebase = "firebase"
	byRefresh  = "refresh"
)

var _ store.Store = (*Store)(nil)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	users    *Entity[domain.User]
	sessions *Entity[domain.Session]
	books    *Entity[domain.Book]
	sections *Entity[domain.Section]
	chapters *Entity[domain.Chapter]
	topics   *Entity[domain.Topic]
	slots    *Entity[domain.DailySlot]
	exams    *Entity[domain.Exam]
}

// New opens (or creates) a Badger database at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := newStore(db, logger)
	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}
	return s, nil
}

// NewInMemory opens a Badger database that never touches disk. Used by tests.
func NewInMemory(logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory badger db: %w", err)
	}
	return newStore(db, logger), nil
}

func newStore(db *badger.DB, logger *slog.Logger) *Store {
	s := &Store{db: db, logger: logger}

	s.users = NewEntity(db, prefixUser, func(u *domain.User) string { return u.ID }, store.ErrUserNotFound).
		WithIndex(byEmail, func(u *domain.User) string { return u.Email }, normalize.Email).
		WithIndex(byGoogle, func(u *domain.User) string { return u.GoogleID }, nil).
		WithIndex(byFirebase, func(u *domain.User) string { return u.FirebaseUID }, nil)

	s.sessions = NewEntity(db, prefixSession, func(x *domain.Session) string { return x.ID }, store.ErrSessionNotFound).
		WithIndex(byRefresh, func(x *domain.Session) string { return x.RefreshTokenHash }, nil).
		WithLookup(byUser, func(x *domain.Session) string { return x.UserID })

	s.books = NewEntity(db, prefixBook, func(b *domain.Book) string { return b.ID }, store.ErrBookNotFound).
		WithLookup(byUser, func(b *domain.Book) string { return b.UserID })

	s.sections = NewEntity(db, prefixSection, func(x *domain.Section) string { return x.ID }, store.ErrSectionNotFound).
		WithLookup(byBook, func(x *domain.Section) string { return x.BookID })

	s.chapters = NewEntity(db, prefixChapter, func(c *domain.Chapter) string { return c.ID }, store.ErrChapterNotFound).
		WithLookup(bySection, func(c *domain.Chapter) string { return c.SectionID }).
		WithLookup(byBook, func(c *domain.Chapter) string { return c.BookID })

	s.topics = NewEntity(db, prefixTopic, func(t *domain.Topic) string { return t.ID }, store.ErrTopicNotFound).
		WithLookup(byChapter, func(t *domain.Topic) string { return t.ChapterID }).
		WithLookup(bySection, func(t *domain.Topic) string { return t.SectionID }).
		WithLookup(byBook, func(t *domain.Topic) string { return t.BookID })

	s.slots = NewEntity(db, prefixSlot, func(x *domain.DailySlot) string { return x.ID }, store.ErrSlotNotFound).
		WithLookup(byUser, func(x *domain.DailySlot) string { return x.UserID })

	s.exams = NewEntity(db, prefixExam, func(e *domain.Exam) string { return e.ID }, store.ErrExamNotFound).
		WithLookup(byUser, func(e *domain.Exam) string { return e.UserID })

	return s
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// Ping reports whether the database is open.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return fmt.Errorf("badger database is closed")
	}
	return nil
}

// RunGC reclaims value log space. Badger needs this called periodically.
func (s *Store) RunGC() error {
	err := s.db.RunValueLogGC(0.5)
	if err == badger.ErrNoRewrite {
		return nil
	}
	return err
}

// --- Users ---

// CreateUser stores a new user. Emails are unique case-insensitively.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	user.Email = normalize.Email(user.Email)
	if err := s.users.Create(ctx, user); err != nil {
		if store.IsAlreadyExists(err) {
			return store.ErrEmailExists
		}
		return err
	}
	return nil
}

// GetUser loads a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.Get(ctx, id)
}

// GetUserByEmail loads a user by email, ignoring case and surrounding space.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.GetByIndex(ctx, byEmail, email)
}

// GetUserByGoogleID loads a user linked to a Google account.
func (s *Store) GetUserByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	if googleID == "" {
		return nil, store.ErrUserNotFound
	}
	return s.users.GetByIndex(ctx, byGoogle, googleID)
}

// GetUserByFirebaseUID loads a user linked to a Firebase account.
func (s *Store) GetUserByFirebaseUID(ctx context.Context, uid string) (*domain.User, error) {
	if uid == "" {
		return nil, store.ErrUserNotFound
	}
	return s.users.GetByIndex(ctx, byFirebase, uid)
}

// UpdateUser replaces a user.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	user.Email = normalize.Email(user.Email)
	return s.users.Update(ctx, user)
}

// ListUsers returns every user ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(users, func(a, b *domain.User) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return users, nil
}

// --- Sessions ---

// CreateSession stores a new auth session.
func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	return s.sessions.Create(ctx, session)
}

// GetSession loads a session and treats expired sessions as missing.
func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.IsExpired() {
		return nil, store.ErrSessionNotFound
	}
	return session, nil
}

// GetSessionByRefreshToken loads the session holding the given refresh token hash.
func (s *Store) GetSessionByRefreshToken(ctx context.Context, tokenHash string) (*domain.Session, error) {
	session, err := s.sessions.GetByIndex(ctx, byRefresh, tokenHash)
	if err != nil {
		return nil, err
	}
	if session.IsExpired() {
		return nil, store.ErrSessionNotFound
	}
	return session, nil
}

// UpdateSession replaces a session, moving its refresh token index.
func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	return s.sessions.Update(ctx, session)
}

// DeleteSession removes a session. Missing sessions are ignored.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.sessions.Delete(ctx, id)
}

// DeleteUserSessions removes every session of a user.
func (s *Store) DeleteUserSessions(ctx context.Context, userID string) (int, error) {
	return s.sessions.DeleteBy(ctx, byUser, userID)
}

// DeleteExpiredSessions removes sessions past their expiry.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int, error) {
	all, err := s.sessions.List(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	deleted := 0
	for _, session := range all {
		if !now.After(session.ExpiresAt) {
			continue
		}
		if err := s.sessions.Delete(ctx, session.ID); err != nil {
			return deleted, fmt.Errorf("delete session %s: %w", session.ID, err)
		}
		deleted++
	}

	if deleted > 0 && s.logger != nil {
		s.logger.Info("Expired sessions pruned", "count", deleted)
	}
	return deleted, nil
}

// --- Books ---

// CreateBook stores a new book.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	return s.books.Create(ctx, book)
}

// GetBook loads a book by id.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	return s.books.Get(ctx, id)
}

// ListBooks returns a user's books, favourites first, then by title.
func (s *Store) ListBooks(ctx context.Context, userID string) ([]*domain.Book, error) {
	books, err := s.books.ListBy(ctx, byUser, userID)
	if err != nil {
		return nil, err
	}
	store.SortBooks(books)
	return books, nil
}

// UpdateBook replaces a book.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	return s.books.Update(ctx, book)
}

// DeleteBook removes a book document only.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	return s.books.Delete(ctx, id)
}

// AdjustBookCounters shifts a book's topic counters atomically.
func (s *Store) AdjustBookCounters(ctx context.Context, id string, dTotal, dCompleted int) (prev, next domain.Counters, err error) {
	_, err = s.books.Mutate(ctx, id, func(b *domain.Book) error {
		prev = b.Counters()
		next = prev.Apply(dTotal, dCompleted)
		b.SetCounters(next)
		b.Touch()
		return nil
	})
	return prev, next, err
}

// --- Sections ---

// CreateSection stores a new section.
func (s *Store) CreateSection(ctx context.Context, section *domain.Section) error {
	return s.sections.Create(ctx, section)
}

// GetSection loads a section by id.
func (s *Store) GetSection(ctx context.Context, id string) (*domain.Section, error) {
	return s.sections.Get(ctx, id)
}

// ListSectionsByBook returns a book's sections in creation order.
func (s *Store) ListSectionsByBook(ctx context.Context, bookID string) ([]*domain.Section, error) {
	sections, err := s.sections.ListBy(ctx, byBook, bookID)
	if err != nil {
		return nil, err
	}
	sortByCreated(sections, func(x *domain.Section) *domain.Syncable { return &x.Syncable })
	return sections, nil
}

// UpdateSection replaces a section.
func (s *Store) UpdateSection(ctx context.Context, section *domain.Section) error {
	return s.sections.Update(ctx, section)
}

// DeleteSection removes a section document only.
func (s *Store) DeleteSection(ctx context.Context, id string) error {
	return s.sections.Delete(ctx, id)
}

// DeleteSectionsByBook removes every section of a book.
func (s *Store) DeleteSectionsByBook(ctx context.Context, bookID string) (int, error) {
	return s.sections.DeleteBy(ctx, byBook, bookID)
}

// AdjustSectionCounters shifts a section's chapter counters atomically.
func (s *Store) AdjustSectionCounters(ctx context.Context, id string, dTotal, dCompleted int) (prev, next domain.Counters, err error) {
	_, err = s.sections.Mutate(ctx, id, func(x *domain.Section) error {
		prev = x.Counters()
		next = prev.Apply(dTotal, dCompleted)
		x.SetCounters(next)
		x.Touch()
		return nil
	})
	return prev, next, err
}

// --- Chapters ---

// CreateChapter stores a new chapter.
func (s *Store) CreateChapter(ctx context.Context, chapter *domain.Chapter) error {
	return s.chapters.Create(ctx, chapter)
}

// GetChapter loads a chapter by id.
func (s *Store) GetChapter(ctx context.Context, id string) (*domain.Chapter, error) {
	return s.chapters.Get(ctx, id)
}

// ListChaptersBySection returns a section's chapters in creation order.
func (s *Store) ListChaptersBySection(ctx context.Context, sectionID string) ([]*domain.Chapter, error) {
	chapters, err := s.chapters.ListBy(ctx, bySection, sectionID)
	if err != nil {
		return nil, err
	}
	sortByCreated(chapters, func(c *domain.Chapter) *domain.Syncable { return &c.Syncable })
	return chapters, nil
}

// ListChaptersByBook returns every chapter of a book in creation order.
func (s *Store) ListChaptersByBook(ctx context.Context, bookID string) ([]*domain.Chapter, error) {
	chapters, err := s.chapters.ListBy(ctx, byBook, bookID)
	if err != nil {
		return nil, err
	}
	sortByCreated(chapters, func(c *domain.Chapter) *domain.Syncable { return &c.Syncable })
	return chapters, nil
}

// UpdateChapter replaces a chapter.
func (s *Store) UpdateChapter(ctx context.Context, chapter *domain.Chapter) error {
	return s.chapters.Update(ctx, chapter)
}

// DeleteChapter removes a chapter document only.
func (s *Store) DeleteChapter(ctx context.Context, id string) error {
	return s.chapters.Delete(ctx, id)
}

// DeleteChaptersBySection removes every chapter of a section.
func (s *Store) DeleteChaptersBySection(ctx context.Context, sectionID string) (int, error) {
	return s.chapters.DeleteBy(ctx, bySection, sectionID)
}

// DeleteChaptersByBook removes every chapter of a book.
func (s *Store) DeleteChaptersByBook(ctx context.Context, bookID string) (int, error) {
	return s.chapters.DeleteBy(ctx, byBook, bookID)
}

// AdjustChapterCounters shifts a chapter's topic counters atomically.
func (s *Store) AdjustChapterCounters(ctx context.Context, id string, dTotal, dCompleted int) (prev, next domain.Counters, err error) {
	_, err = s.chapters.Mutate(ctx, id, func(c *domain.Chapter) error {
		prev = c.Counters()
		next = prev.Apply(dTotal, dCompleted)
		c.SetCounters(next)
		c.Touch()
		return nil
	})
	return prev, next, err
}

// --- Topics ---

// CreateTopic stores a new topic.
func (s *Store) CreateTopic(ctx context.Context, topic *domain.Topic) error {
	return s.topics.Create(ctx, topic)
}

// GetTopic loads a topic by id.
func (s *Store) GetTopic(ctx context.Context, id string) (*domain.Topic, error) {
	return s.topics.Get(ctx, id)
}

// ListTopicsByChapter returns a chapter's topics in creation order.
func (s *Store) ListTopicsByChapter(ctx context.Context, chapterID string) ([]*domain.Topic, error) {
	topics, err := s.topics.ListBy(ctx, byChapter, chapterID)
	if err != nil {
		return nil, err
	}
	sortByCreated(topics, func(t *domain.Topic) *domain.Syncable { return &t.Syncable })
	return topics, nil
}

// ListTopicsByBook returns every topic of a book in creation order.
func (s *Store) ListTopicsByBook(ctx context.Context, bookID string) ([]*domain.Topic, error) {
	topics, err := s.topics.ListBy(ctx, byBook, bookID)
	if err != nil {
		return nil, err
	}
	sortByCreated(topics, func(t *domain.Topic) *domain.Syncable { return &t.Syncable })
	return topics, nil
}

// UpdateTopic replaces a topic.
func (s *Store) UpdateTopic(ctx context.Context, topic *domain.Topic) error {
	return s.topics.Update(ctx, topic)
}

// DeleteTopic removes a topic document only.
func (s *Store) DeleteTopic(ctx context.Context, id string) error {
	return s.topics.Delete(ctx, id)
}

// DeleteTopicsByChapter removes every topic of a chapter.
func (s *Store) DeleteTopicsByChapter(ctx context.Context, chapterID string) (int, error) {
	return s.topics.DeleteBy(ctx, byChapter, chapterID)
}

// DeleteTopicsBySection removes every topic of a section.
func (s *Store) DeleteTopicsBySection(ctx context.Context, sectionID string) (int, error) {
	return s.topics.DeleteBy(ctx, bySection, sectionID)
}

// DeleteTopicsByBook removes every topic of a book.
func (s *Store) DeleteTopicsByBook(ctx context.Context, bookID string) (int, error) {
	return s.topics.DeleteBy(ctx, byBook, bookID)
}

// CountTopics counts total and completed topics under one parent.
func (s *Store) CountTopics(ctx context.Context, scope store.TopicScope) (domain.Counters, error) {
	var name, value string
	switch {
	case scope.ChapterID != "":
		name, value = byChapter, scope.ChapterID
	case scope.SectionID != "":
		name, value = bySection, scope.SectionID
	case scope.BookID != "":
		name, value = byBook, scope.BookID
	default:
		return domain.Counters{}, fmt.Errorf("count topics: empty scope")
	}

	topics, err := s.topics.ListBy(ctx, name, value)
	if err != nil {
		return domain.Counters{}, err
	}

	var c domain.Counters
	for _, t := range topics {
		c.Total++
		if t.IsCompleted {
			c.Completed++
		}
	}
	return c, nil
}

// --- Slots ---

// CreateSlot stores a new daily slot.
func (s *Store) CreateSlot(ctx context.Context, slot *domain.DailySlot) error {
	return s.slots.Create(ctx, slot)
}

// GetSlot loads a slot by id.
func (s *Store) GetSlot(ctx context.Context, id string) (*domain.DailySlot, error) {
	return s.slots.Get(ctx, id)
}

// ListSlots returns a user's slots that pass filter, ordered by date then start time.
func (s *Store) ListSlots(ctx context.Context, userID string, filter store.SlotFilter) ([]*domain.DailySlot, error) {
	all, err := s.slots.ListBy(ctx, byUser, userID)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.DailySlot, 0, len(all))
	for _, slot := range all {
		if filter.Matches(slot.Date) {
			out = append(out, slot)
		}
	}
	store.SortSlots(out)
	return out, nil
}

// UpdateSlot replaces a slot together with its embedded tasks.
func (s *Store) UpdateSlot(ctx context.Context, slot *domain.DailySlot) error {
	return s.slots.Update(ctx, slot)
}

// DeleteSlot removes a slot and its tasks.
func (s *Store) DeleteSlot(ctx context.Context, id string) error {
	return s.slots.Delete(ctx, id)
}

// --- Exams ---

// CreateExam stores a new exam.
func (s *Store) CreateExam(ctx context.Context, exam *domain.Exam) error {
	return s.exams.Create(ctx, exam)
}

// GetExam loads an exam by id.
func (s *Store) GetExam(ctx context.Context, id string) (*domain.Exam, error) {
	return s.exams.Get(ctx, id)
}

// ListExams returns a user's exams ordered by date.
func (s *Store) ListExams(ctx context.Context, userID string) ([]*domain.Exam, error) {
	exams, err := s.exams.ListBy(ctx, byUser, userID)
	if err != nil {
		return nil, err
	}
	store.SortExams(exams)
	return exams, nil
}

// UpdateExam replaces an exam.
func (s *Store) UpdateExam(ctx context.Context, exam *domain.Exam) error {
	return s.exams.Update(ctx, exam)
}

// DeleteExam removes an exam.
func (s *Store) DeleteExam(ctx context.Context, id string) error {
	return s.exams.Delete(ctx, id)
}

func sortByCreated[T any](items []*T, syncable func(*T) *domain.Syncable) {
	slices.SortFunc(items, func(a, b *T) int {
		sa, sb := syncable(a), syncable(b)
		return cmp.Or(sa.CreatedAt.Compare(sb.CreatedAt), cmp.Compare(sa.ID, sb.ID))
	})
}
