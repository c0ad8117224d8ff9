// Package storetest holds behavior tests every store.Store implementation must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

// Factory opens a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Run executes the shared suite against the stores produced by open.
func Run(t *testing.T, open Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(*testing.T, store.Store)
	}{
		{"UserEmailIsUniqueAndCaseInsensitive", testUserEmail},
		{"UserFederatedLookups", testUserFederated},
		{"UserUpdateMovesIndexes", testUserUpdate},
		{"SessionRefreshRotation", testSessionRotation},
		{"SessionBulkDeletes", testSessionBulkDeletes},
		{"BookListIsPerUserAndOrdered", testBookList},
		{"AdjustCountersClamps", testAdjustClamps},
		{"AdjustCountersConcurrent", testAdjustConcurrent},
		{"AdjustMissingDocument", testAdjustMissing},
		{"HierarchyListsAndCascades", testHierarchyCascades},
		{"CountTopicsByScope", testCountTopics},
		{"SlotsRoundTripTasks", testSlotTasks},
		{"SlotFilterAndOrder", testSlotFilter},
		{"ExamsOrderedByDate", testExams},
		{"DeleteMissingIsNoop", testDeleteMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

var seq int

func nextID(prefix string) string {
	seq++
	return fmt.Sprintf("%s-%04d", prefix, seq)
}

func syncable(prefix string) domain.Syncable {
	now := time.Now().UTC()
	return domain.Syncable{ID: nextID(prefix), CreatedAt: now, UpdatedAt: now}
}

// Tree holds one Book with one Section, one Chapter and n Topics.
type Tree struct {
	Book    *domain.Book
	Section *domain.Section
	Chapter *domain.Chapter
	Topics  []*domain.Topic
}

// SeedTree writes a small hierarchy with counters already consistent.
func SeedTree(t *testing.T, s store.Store, userID string, topics int) Tree {
	t.Helper()
	ctx := context.Background()

	book := &domain.Book{Syncable: syncable("book"), UserID: userID, Title: "Anatomy", TotalTopics: topics}
	require.NoError(t, s.CreateBook(ctx, book))

	section := &domain.Section{Syncable: syncable("section"), UserID: userID, BookID: book.ID, Title: "Upper limb", TotalChapters: 1}
	require.NoError(t, s.CreateSection(ctx, section))

	chapter := &domain.Chapter{Syncable: syncable("chapter"), UserID: userID, BookID: book.ID, SectionID: section.ID, Title: "Shoulder", TotalTopics: topics}
	require.NoError(t, s.CreateChapter(ctx, chapter))

	tree := Tree{Book: book, Section: section, Chapter: chapter}
	for i := range topics {
		topic := &domain.Topic{
			Syncable:  syncable("topic"),
			UserID:    userID,
			BookID:    book.ID,
			SectionID: section.ID,
			ChapterID: chapter.ID,
			Title:     fmt.Sprintf("Topic %d", i+1),
		}
		require.NoError(t, s.CreateTopic(ctx, topic))
		tree.Topics = append(tree.Topics, topic)
	}
	return tree
}

func newUser(email string) *domain.User {
	return &domain.User{Syncable: syncable("user"), Email: email, FirstName: "Ada", LastName: "Lovelace", Role: domain.RoleUser}
}

func testUserEmail(t *testing.T, s store.Store) {
	ctx := context.Background()

	user := newUser("Ada@Example.com ")
	require.NoError(t, s.CreateUser(ctx, user))

	got, err := s.GetUserByEmail(ctx, "ada@example.COM")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "ada@example.com", got.Email)

	err = s.CreateUser(ctx, newUser("ADA@example.com"))
	assert.True(t, store.IsAlreadyExists(err), "got %v", err)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.True(t, store.IsNotFound(err))
}

func testUserFederated(t *testing.T, s store.Store) {
	ctx := context.Background()

	user := newUser("fed@example.com")
	user.GoogleID = "g-123"
	user.FirebaseUID = "fb-456"
	require.NoError(t, s.CreateUser(ctx, user))

	byGoogle, err := s.GetUserByGoogleID(ctx, "g-123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byGoogle.ID)

	byFirebase, err := s.GetUserByFirebaseUID(ctx, "fb-456")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byFirebase.ID)

	_, err = s.GetUserByGoogleID(ctx, "")
	assert.True(t, store.IsNotFound(err))

	// Two accounts without federated ids never collide on the empty value.
	require.NoError(t, s.CreateUser(ctx, newUser("a@example.com")))
	require.NoError(t, s.CreateUser(ctx, newUser("b@example.com")))
}

func testUserUpdate(t *testing.T, s store.Store) {
	ctx := context.Background()

	user := newUser("old@example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	user.Email = "new@example.com"
	user.GoogleID = "g-linked"
	user.IsBlocked = true
	require.NoError(t, s.UpdateUser(ctx, user))

	_, err := s.GetUserByEmail(ctx, "old@example.com")
	assert.True(t, store.IsNotFound(err))

	got, err := s.GetUserByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.True(t, got.IsBlocked)

	got, err = s.GetUserByGoogleID(ctx, "g-linked")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	other := newUser("other@example.com")
	require.NoError(t, s.CreateUser(ctx, other))
	other.Email = "new@example.com"
	assert.True(t, store.IsAlreadyExists(s.UpdateUser(ctx, other)))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func newSession(userID, hash string, expires time.Time) *domain.Session {
	now := time.Now().UTC()
	return &domain.Session{
		ID:               nextID("session"),
		UserID:           userID,
		RefreshTokenHash: hash,
		ExpiresAt:        expires,
		CreatedAt:        now,
		LastSeenAt:       now,
	}
}

func testSessionRotation(t *testing.T, s store.Store) {
	ctx := context.Background()

	session := newSession("user-1", "hash-a", time.Now().Add(time.Hour))
	require.NoError(t, s.CreateSession(ctx, session))

	got, err := s.GetSessionByRefreshToken(ctx, "hash-a")
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	got.RefreshTokenHash = "hash-b"
	require.NoError(t, s.UpdateSession(ctx, got))

	_, err = s.GetSessionByRefreshToken(ctx, "hash-a")
	assert.True(t, store.IsNotFound(err), "old refresh token must stop working")

	got, err = s.GetSessionByRefreshToken(ctx, "hash-b")
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	expired := newSession("user-1", "hash-c", time.Now().Add(-time.Minute))
	require.NoError(t, s.CreateSession(ctx, expired))
	_, err = s.GetSessionByRefreshToken(ctx, "hash-c")
	assert.True(t, store.IsNotFound(err))
	_, err = s.GetSession(ctx, expired.ID)
	assert.True(t, store.IsNotFound(err))
}

func testSessionBulkDeletes(t *testing.T, s store.Store) {
	ctx := context.Background()

	require.NoError(t, s.CreateSession(ctx, newSession("user-1", "h1", time.Now().Add(time.Hour))))
	require.NoError(t, s.CreateSession(ctx, newSession("user-1", "h2", time.Now().Add(-time.Hour))))
	require.NoError(t, s.CreateSession(ctx, newSession("user-2", "h3", time.Now().Add(-time.Hour))))
	keep := newSession("user-2", "h4", time.Now().Add(time.Hour))
	require.NoError(t, s.CreateSession(ctx, keep))

	n, err := s.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.DeleteUserSessions(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetSession(ctx, keep.ID)
	assert.NoError(t, err)
}

func testBookList(t *testing.T, s store.Store) {
	ctx := context.Background()

	for _, b := range []*domain.Book{
		{Syncable: syncable("book"), UserID: "u1", Title: "zoology"},
		{Syncable: syncable("book"), UserID: "u1", Title: "Émbryology"},
		{Syncable: syncable("book"), UserID: "u1", Title: "Physiology", IsFavourite: true},
		{Syncable: syncable("book"), UserID: "u2", Title: "Anatomy"},
	} {
		require.NoError(t, s.CreateBook(ctx, b))
	}

	books, err := s.ListBooks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "Physiology", books[0].Title)
	assert.Equal(t, "Émbryology", books[1].Title)
	assert.Equal(t, "zoology", books[2].Title)

	books, err = s.ListBooks(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, books)
}

func testAdjustClamps(t *testing.T, s store.Store) {
	ctx := context.Background()
	tree := SeedTree(t, s, "u1", 0)

	prev, next, err := s.AdjustBookCounters(ctx, tree.Book.ID, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.Counters{}, prev)
	assert.Equal(t, domain.Counters{Total: 3}, next)

	_, next, err = s.AdjustBookCounters(ctx, tree.Book.ID, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.Counters{Total: 3, Completed: 3}, next)

	_, next, err = s.AdjustBookCounters(ctx, tree.Book.ID, -10, -1)
	require.NoError(t, err)
	assert.Equal(t, domain.Counters{}, next)

	prev, next, err = s.AdjustChapterCounters(ctx, tree.Chapter.ID, 2, 2)
	require.NoError(t, err)
	assert.False(t, prev.IsComplete())
	assert.True(t, next.IsComplete())

	prev, next, err = s.AdjustSectionCounters(ctx, tree.Section.ID, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.Counters{Total: 1}, prev)
	assert.Equal(t, domain.Counters{Total: 1, Completed: 1}, next)

	section, err := s.GetSection(ctx, tree.Section.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, section.CompletedChapters)
}

func testAdjustConcurrent(t *testing.T, s store.Store) {
	ctx := context.Background()
	tree := SeedTree(t, s, "u1", 0)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.AdjustBookCounters(ctx, tree.Book.ID, 1, 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	book, err := s.GetBook(ctx, tree.Book.ID)
	require.NoError(t, err)
	assert.Equal(t, workers, book.TotalTopics)
	assert.Equal(t, workers, book.CompletedTopics)
}

func testAdjustMissing(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, _, err := s.AdjustBookCounters(ctx, "book-missing", 1, 0)
	assert.True(t, store.IsNotFound(err))
	_, _, err = s.AdjustSectionCounters(ctx, "section-missing", 1, 0)
	assert.True(t, store.IsNotFound(err))
	_, _, err = s.AdjustChapterCounters(ctx, "chapter-missing", 1, 0)
	assert.True(t, store.IsNotFound(err))
}

func testHierarchyCascades(t *testing.T, s store.Store) {
	ctx := context.Background()
	tree := SeedTree(t, s, "u1", 3)
	other := SeedTree(t, s, "u1", 2)

	sections, err := s.ListSectionsByBook(ctx, tree.Book.ID)
	require.NoError(t, err)
	require.Len(t, sections, 1)

	chapters, err := s.ListChaptersByBook(ctx, tree.Book.ID)
	require.NoError(t, err)
	require.Len(t, chapters, 1)

	topics, err := s.ListTopicsByChapter(ctx, tree.Chapter.ID)
	require.NoError(t, err)
	require.Len(t, topics, 3)
	assert.Equal(t, "Topic 1", topics[0].Title)

	n, err := s.DeleteTopicsByChapter(ctx, tree.Chapter.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.DeleteChaptersBySection(ctx, tree.Section.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.DeleteSectionsByBook(ctx, tree.Book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.DeleteBook(ctx, tree.Book.ID))
	_, err = s.GetBook(ctx, tree.Book.ID)
	assert.True(t, store.IsNotFound(err))
	_, err = s.GetTopic(ctx, tree.Topics[0].ID)
	assert.True(t, store.IsNotFound(err))

	// Siblings are untouched.
	topics, err = s.ListTopicsByBook(ctx, other.Book.ID)
	require.NoError(t, err)
	assert.Len(t, topics, 2)

	n, err = s.DeleteTopicsBySection(ctx, other.Section.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = s.DeleteChaptersByBook(ctx, other.Book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.DeleteTopicsByBook(ctx, other.Book.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testCountTopics(t *testing.T, s store.Store) {
	ctx := context.Background()
	tree := SeedTree(t, s, "u1", 4)

	for _, topic := range tree.Topics[:3] {
		topic.Toggle(time.Now().UTC())
		require.NoError(t, s.UpdateTopic(ctx, topic))
	}

	for _, scope := range []store.TopicScope{
		{ChapterID: tree.Chapter.ID},
		{SectionID: tree.Section.ID},
		{BookID: tree.Book.ID},
		{BookID: "ignored", ChapterID: tree.Chapter.ID},
	} {
		c, err := s.CountTopics(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, domain.Counters{Total: 4, Completed: 3}, c, "scope %+v", scope)
	}

	_, err := s.CountTopics(ctx, store.TopicScope{})
	assert.Error(t, err)
}

func newSlot(userID, date, start, end string) *domain.DailySlot {
	return &domain.DailySlot{Syncable: syncable("slot"), UserID: userID, Date: date, StartTime: start, EndTime: end, Title: start}
}

func testSlotTasks(t *testing.T, s store.Store) {
	ctx := context.Background()

	slot := newSlot("u1", "2026-03-01", "09:00", "10:00")
	slot.AddTask(domain.SlotTask{ID: "task-1", Kind: domain.TaskKindTextbook, TopicID: "topic-1", TitleSnapshot: "Brachial plexus"})
	slot.AddTask(domain.SlotTask{ID: "task-2", Kind: domain.TaskKindCustom, TitleSnapshot: "Flashcards"})
	require.NoError(t, s.CreateSlot(ctx, slot))

	got, err := s.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	require.Len(t, got.Tasks, 2)
	assert.Equal(t, domain.TaskKindTextbook, got.Tasks[0].Kind)
	assert.Equal(t, "topic-1", got.Tasks[0].TopicID)
	assert.Equal(t, 2, got.TotalTasks)

	got.ToggleTask(1, time.Now().UTC())
	require.NoError(t, s.UpdateSlot(ctx, got))

	got, err = s.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CompletedTasks)
	assert.True(t, got.Tasks[1].IsCompleted)
	assert.NotNil(t, got.Tasks[1].CompletedAt)

	require.NoError(t, s.DeleteSlot(ctx, slot.ID))
	_, err = s.GetSlot(ctx, slot.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testSlotFilter(t *testing.T, s store.Store) {
	ctx := context.Background()

	for _, slot := range []*domain.DailySlot{
		newSlot("u1", "2026-03-02", "08:00", "09:00"),
		newSlot("u1", "2026-03-01", "14:00", "15:00"),
		newSlot("u1", "2026-03-01", "09:00", "10:00"),
		newSlot("u1", "2026-03-05", "09:00", "10:00"),
		newSlot("u2", "2026-03-01", "09:00", "10:00"),
	} {
		require.NoError(t, s.CreateSlot(ctx, slot))
	}

	day, err := s.ListSlots(ctx, "u1", store.SlotFilter{Date: "2026-03-01"})
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, "09:00", day[0].StartTime)
	assert.Equal(t, "14:00", day[1].StartTime)

	rng, err := s.ListSlots(ctx, "u1", store.SlotFilter{From: "2026-03-01", To: "2026-03-02"})
	require.NoError(t, err)
	assert.Len(t, rng, 3)

	all, err := s.ListSlots(ctx, "u1", store.SlotFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "2026-03-05", all[3].Date)
}

func testExams(t *testing.T, s store.Store) {
	ctx := context.Background()

	late := &domain.Exam{Syncable: syncable("exam"), UserID: "u1", Title: "Finals", ExamDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
	early := &domain.Exam{Syncable: syncable("exam"), UserID: "u1", Title: "Midterm", ExamDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, s.CreateExam(ctx, late))
	require.NoError(t, s.CreateExam(ctx, early))

	exams, err := s.ListExams(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, exams, 2)
	assert.Equal(t, "Midterm", exams[0].Title)
	assert.True(t, exams[0].ExamDate.Equal(early.ExamDate))

	early.Title = "Midterm (moved)"
	early.ExamDate = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpdateExam(ctx, early))

	exams, err = s.ListExams(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Finals", exams[0].Title)

	require.NoError(t, s.DeleteExam(ctx, late.ID))
	_, err = s.GetExam(ctx, late.ID)
	assert.True(t, store.IsNotFound(err))
}

func testDeleteMissing(t *testing.T, s store.Store) {
	ctx := context.Background()

	assert.NoError(t, s.DeleteBook(ctx, "book-missing"))
	assert.NoError(t, s.DeleteSlot(ctx, "slot-missing"))
	assert.NoError(t, s.DeleteSession(ctx, "session-missing"))

	n, err := s.DeleteTopicsByBook(ctx, "book-missing")
	require.NoError(t, err)
	assert.Zero(t, n)

	err = s.UpdateBook(ctx, &domain.Book{Syncable: syncable("book"), UserID: "u1"})
	assert.True(t, store.IsNotFound(err))
}
