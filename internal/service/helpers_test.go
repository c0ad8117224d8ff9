package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	domainerrors "github.com/studytrackapp/studytrack-server/internal/errors"
	"github.com/studytrackapp/studytrack-server/internal/sse"
	"github.com/studytrackapp/studytrack-server/internal/store"
	"github.com/studytrackapp/studytrack-server/internal/store/sqlite"
)

var testNow = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

// recordingEmitter keeps every emitted event for assertions.
type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingEmitter) Emit(event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := event.(sse.Event); ok {
		r.events = append(r.events, e)
	}
}

func (r *recordingEmitter) types() []sse.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sse.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	store     store.Store
	events    *recordingEmitter
	hierarchy *HierarchyService
	slots     *SlotService
	bridge    *TopicTaskBridge
	exams     *ExamService
	progress  *ProgressService
}

// setupTest wires the study services over a temporary SQLite store.
func setupTest(t *testing.T) *testEnv {
	t.Helper()

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	logger := slog.New(slog.DiscardHandler)
	clock := domain.FixedClock{T: testNow}
	events := &recordingEmitter{}

	hierarchy := NewHierarchyService(s, nil, events, nil, clock, logger)
	slots := NewSlotService(s, events, nil, clock, logger)

	return &testEnv{
		store:     s,
		events:    events,
		hierarchy: hierarchy,
		slots:     slots,
		bridge:    NewTopicTaskBridge(slots, hierarchy, s, logger),
		exams:     NewExamService(s, nil, clock, logger),
		progress:  NewProgressService(s, logger),
	}
}

// seedHierarchy creates a book with one section, one chapter and n topics through the services.
func (e *testEnv) seedHierarchy(t *testing.T, userID string, n int) (*domain.Book, *domain.Section, *domain.Chapter, []*domain.Topic) {
	t.Helper()
	ctx := context.Background()

	book, err := e.hierarchy.CreateBook(ctx, userID, CreateBookRequest{Title: "Anatomy", Color: "#ff8800"})
	require.NoError(t, err)
	section, err := e.hierarchy.CreateSection(ctx, userID, book.ID, CreateSectionRequest{Title: "Limbs"})
	require.NoError(t, err)
	chapter, err := e.hierarchy.CreateChapter(ctx, userID, section.ID, CreateChapterRequest{Title: "Upper limb"})
	require.NoError(t, err)

	topics := make([]*domain.Topic, 0, n)
	for range n {
		topic, err := e.hierarchy.CreateTopic(ctx, userID, chapter.ID, CreateTopicRequest{Title: "Brachial plexus"})
		require.NoError(t, err)
		topics = append(topics, topic)
	}
	return book, section, chapter, topics
}

func (e *testEnv) bookCounters(t *testing.T, id string) domain.Counters {
	t.Helper()
	b, err := e.store.GetBook(context.Background(), id)
	require.NoError(t, err)
	return b.Counters()
}

func (e *testEnv) sectionCounters(t *testing.T, id string) domain.Counters {
	t.Helper()
	s, err := e.store.GetSection(context.Background(), id)
	require.NoError(t, err)
	return s.Counters()
}

func (e *testEnv) chapterCounters(t *testing.T, id string) domain.Counters {
	t.Helper()
	c, err := e.store.GetChapter(context.Background(), id)
	require.NoError(t, err)
	return c.Counters()
}

// requireCode asserts err is a domain error with the given code and returns it.
func requireCode(t *testing.T, err error, code domainerrors.Code) *domainerrors.Error {
	t.Helper()
	require.Error(t, err)
	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, code, domainErr.Code, "message: %s", domainErr.Message)
	return domainErr
}
