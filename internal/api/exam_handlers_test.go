package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/search"
	"github.com/studytrackapp/studytrack-server/internal/service"
)

func TestExamCRUD(t *testing.T) {
	ts := setupTestServer(t)
	_, bearer := ts.createUser(t, "ada@example.com", domain.RoleUser)

	resp := ts.api.Post("/api/v1/exams", bearer, map[string]any{"title": "USMLE Step 1", "exam_date": "2099-06-01"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	exam := decode[*domain.Exam](t, resp.Body.Bytes())
	assert.Equal(t, "USMLE Step 1", exam.Title)

	resp = ts.api.Patch("/api/v1/exams/"+exam.ID, bearer, map[string]any{"exam_date": "2099-07-01"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/exams", bearer)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[ListExamsResponse](t, resp.Body.Bytes()).Exams, 1)

	resp = ts.api.Delete("/api/v1/exams/"+exam.ID, bearer)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Get("/api/v1/exams/"+exam.ID, bearer)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCreateExam_BadDate(t *testing.T) {
	ts := setupTestServer(t)
	_, bearer := ts.createUser(t, "ada@example.com", domain.RoleUser)

	resp := ts.api.Post("/api/v1/exams", bearer, map[string]any{"title": "Finals", "exam_date": "June 1st"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestNextExam(t *testing.T) {
	ts := setupTestServer(t)
	_, bearer := ts.createUser(t, "ada@example.com", domain.RoleUser)

	resp := ts.api.Get("/api/v1/exams/next", bearer)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	for _, e := range []struct{ title, date string }{
		{"Past", "2000-01-01"},
		{"Later", "2099-12-01"},
		{"Sooner", "2099-01-01"},
	} {
		resp = ts.api.Post("/api/v1/exams", bearer, map[string]any{"title": e.title, "exam_date": e.date})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	}

	resp = ts.api.Get("/api/v1/exams/next", bearer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	next := decode[service.UpcomingExam](t, resp.Body.Bytes())
	assert.Equal(t, "Sooner", next.Title)
	assert.Positive(t, next.DaysLeft)
}

func TestProgress(t *testing.T) {
	ts := setupTestServer(t)
	_, bearer := ts.createUser(t, "ada@example.com", domain.RoleUser)
	tr := ts.createTree(t, bearer, 4)

	resp := ts.api.Patch("/api/v1/topics/"+tr.topics[0].ID+"/toggle", bearer)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/progress", bearer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	overview := decode[service.Overview](t, resp.Body.Bytes())
	require.Len(t, overview.Books, 1)
	assert.Equal(t, service.Progress{Completed: 1, Total: 4, Percent: 25}, overview.Topics)

	resp = ts.api.Get("/api/v1/progress/books/"+tr.book.ID, bearer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	breakdown := decode[service.BookBreakdown](t, resp.Body.Bytes())
	require.Len(t, breakdown.Sections, 1)
	require.Len(t, breakdown.Sections[0].Breakdown, 1)
	assert.Equal(t, 25, breakdown.Sections[0].Breakdown[0].Topics.Percent)
	assert.False(t, breakdown.Sections[0].Breakdown[0].IsComplete)

	date := time.Now().Format(domain.DateLayout)
	slot := ts.createSlot(t, bearer, date, "09:00", "10:00")
	task := ts.addTask(t, bearer, slot.ID, map[string]any{"type": "CUSTOM", "title_snapshot": "Review"})
	ts.addTask(t, bearer, slot.ID, map[string]any{"type": "CUSTOM", "title_snapshot": "Quiz"})
	resp = ts.api.Patch("/api/v1/slots/"+slot.ID+"/tasks/"+task.Task.ID+"/toggle", bearer)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/progress/days/"+date, bearer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	day := decode[service.DayProgress](t, resp.Body.Bytes())
	assert.Equal(t, service.Progress{Completed: 1, Total: 2, Percent: 50}, day.Tasks)

	resp = ts.api.Get("/api/v1/progress/days/yesterday", bearer)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSearch(t *testing.T) {
	ts := setupTestServer(t)
	_, bearer := ts.createUser(t, "ada@example.com", domain.RoleUser)
	_, otherBearer := ts.createUser(t, "eve@example.com", domain.RoleUser)
	tr := ts.createTree(t, bearer, 1)

	resp := ts.api.Get("/api/v1/search?q=physiology&types=book", bearer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	result := decode[search.SearchResult](t, resp.Body.Bytes())
	require.Len(t, result.Hits, 1)
	assert.Equal(t, tr.book.ID, result.Hits[0].ID)
	assert.Equal(t, search.DocTypeBook, result.Hits[0].Type)

	resp = ts.api.Get("/api/v1/search?q=wiggers&types=topic", bearer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	result = decode[search.SearchResult](t, resp.Body.Bytes())
	require.Len(t, result.Hits, 1)
	assert.Equal(t, tr.topics[0].ID, result.Hits[0].ID)

	// Results are scoped to the caller.
	resp = ts.api.Get("/api/v1/search?q=physiology", otherBearer)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decode[search.SearchResult](t, resp.Body.Bytes()).Hits)

	resp = ts.api.Get("/api/v1/search?q=x&types=series", bearer)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
