package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studytrackapp/studytrack-server/internal/domain"
)

func TestOwnership_ForeignEntitiesForbidden(t *testing.T) {
	ts := setupTestServer(t)
	_, owner := ts.createUser(t, "ada@example.com", domain.RoleUser)
	_, intruder := ts.createUser(t, "eve@example.com", domain.RoleUser)

	tr := ts.createTree(t, owner, 1)
	slot := ts.createSlot(t, owner, "2026-03-02", "09:00", "10:00")
	task := ts.addTask(t, owner, slot.ID, map[string]any{"type": "CUSTOM", "title_snapshot": "Review"})

	resp := ts.api.Post("/api/v1/exams", owner, map[string]any{"title": "Finals", "exam_date": "2099-01-01"})
	require.Equal(t, http.StatusCreated, resp.Code)
	exam := decode[*domain.Exam](t, resp.Body.Bytes())

	tests := []struct {
		name   string
		method string
		path   string
		body   map[string]any
	}{
		{"get book", http.MethodGet, "/api/v1/books/" + tr.book.ID, nil},
		{"update book", http.MethodPatch, "/api/v1/books/" + tr.book.ID, map[string]any{"title": "Mine"}},
		{"delete book", http.MethodDelete, "/api/v1/books/" + tr.book.ID, nil},
		{"list sections", http.MethodGet, "/api/v1/books/" + tr.book.ID + "/sections", nil},
		{"create section", http.MethodPost, "/api/v1/books/" + tr.book.ID + "/sections", map[string]any{"title": "x"}},
		{"delete section", http.MethodDelete, "/api/v1/sections/" + tr.section.ID, nil},
		{"create chapter", http.MethodPost, "/api/v1/sections/" + tr.section.ID + "/chapters", map[string]any{"title": "x"}},
		{"update chapter", http.MethodPatch, "/api/v1/chapters/" + tr.chapter.ID, map[string]any{"title": "x"}},
		{"create topic", http.MethodPost, "/api/v1/chapters/" + tr.chapter.ID + "/topics", map[string]any{"title": "x"}},
		{"toggle topic", http.MethodPatch, "/api/v1/topics/" + tr.topics[0].ID + "/toggle", nil},
		{"delete topic", http.MethodDelete, "/api/v1/topics/" + tr.topics[0].ID, nil},
		{"get slot", http.MethodGet, "/api/v1/slots/" + slot.ID, nil},
		{"toggle task", http.MethodPatch, "/api/v1/slots/" + slot.ID + "/tasks/" + task.Task.ID + "/toggle", nil},
		{"delete slot", http.MethodDelete, "/api/v1/slots/" + slot.ID, nil},
		{"get exam", http.MethodGet, "/api/v1/exams/" + exam.ID, nil},
		{"book progress", http.MethodGet, "/api/v1/progress/books/" + tr.book.ID, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := []any{intruder}
			if tt.body != nil {
				args = append(args, tt.body)
			}
			resp := ts.api.Do(tt.method, tt.path, args...)
			assert.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())
			assert.Equal(t, "FORBIDDEN", decodeError(t, resp.Body.Bytes()).Code)
		})
	}

	// Nothing changed for the owner.
	detail := ts.getBook(t, owner, tr.book.ID)
	assert.Equal(t, tr.book.Title, detail.Title)
	assert.Equal(t, 1, detail.TotalTopics)
	assert.Zero(t, detail.CompletedTopics)
}

func TestTextbookTask_ForeignTopicForbidden(t *testing.T) {
	ts := setupTestServer(t)
	_, owner := ts.createUser(t, "ada@example.com", domain.RoleUser)
	_, intruder := ts.createUser(t, "eve@example.com", domain.RoleUser)

	tr := ts.createTree(t, owner, 1)
	slot := ts.createSlot(t, intruder, "2026-03-02", "09:00", "10:00")

	resp := ts.api.Post("/api/v1/slots/"+slot.ID+"/tasks", intruder, map[string]any{
		"type":           "TEXTBOOK",
		"topic_id":       tr.topics[0].ID,
		"title_snapshot": "Borrowed",
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	ts := setupTestServer(t)
	user, bearer := ts.createUser(t, "ada@example.com", domain.RoleUser)

	resp := ts.api.Get("/api/v1/admin/users", bearer)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Post("/api/v1/admin/users/"+user.ID+"/block", bearer)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Get("/api/v1/admin/users")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAdminBlockUser(t *testing.T) {
	ts := setupTestServer(t)
	admin, adminBearer := ts.createUser(t, "root@example.com", domain.RoleAdmin)
	auth := ts.signup(t, "ada@example.com", "correct horse battery")
	userBearer := "Authorization: Bearer " + auth.AccessToken

	resp := ts.api.Get("/api/v1/admin/users", adminBearer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Len(t, decode[ListUsersResponse](t, resp.Body.Bytes()).Users, 2)

	resp = ts.api.Post("/api/v1/admin/users/"+auth.User.ID+"/block", adminBearer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.True(t, decode[UserResponse](t, resp.Body.Bytes()).IsBlocked)

	// The live access token is refused and the session is gone.
	resp = ts.api.Get("/api/v1/books", userBearer)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "User is blocked by admin.", decodeError(t, resp.Body.Bytes()).Message)

	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": auth.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Post("/api/v1/auth/login", map[string]any{"email": "ada@example.com", "password": "correct horse battery"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Post("/api/v1/admin/users/"+auth.User.ID+"/unblock", adminBearer)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/auth/login", map[string]any{"email": "ada@example.com", "password": "correct horse battery"})
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/admin/users/"+admin.ID+"/block", adminBearer)
	assert.Equal(t, http.StatusForbidden, resp.Code, "admins cannot block themselves")
}

func TestAdminSetRole(t *testing.T) {
	ts := setupTestServer(t)
	admin, adminBearer := ts.createUser(t, "root@example.com", domain.RoleAdmin)
	user, _ := ts.createUser(t, "ada@example.com", domain.RoleUser)

	resp := ts.api.Put("/api/v1/admin/users/"+admin.ID+"/role", adminBearer, map[string]any{"role": "user"})
	assert.Equal(t, http.StatusForbidden, resp.Code, "the only admin cannot be demoted")

	resp = ts.api.Put("/api/v1/admin/users/"+user.ID+"/role", adminBearer, map[string]any{"role": "admin"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, domain.RoleAdmin, decode[UserResponse](t, resp.Body.Bytes()).Role)

	resp = ts.api.Put("/api/v1/admin/users/"+user.ID+"/role", adminBearer, map[string]any{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
