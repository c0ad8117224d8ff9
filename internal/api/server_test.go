package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studytrackapp/studytrack-server/internal/auth"
	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/id"
	"github.com/studytrackapp/studytrack-server/internal/mail"
	"github.com/studytrackapp/studytrack-server/internal/otp"
	"github.com/studytrackapp/studytrack-server/internal/ratelimit"
	"github.com/studytrackapp/studytrack-server/internal/search"
	"github.com/studytrackapp/studytrack-server/internal/service"
	"github.com/studytrackapp/studytrack-server/internal/sse"
	"github.com/studytrackapp/studytrack-server/internal/store"
	"github.com/studytrackapp/studytrack-server/internal/store/sqlite"
)

var cheapPasswordParams = auth.PasswordParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

// capturingSender records outgoing mail so tests can read OTPs.
type capturingSender struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (c *capturingSender) Send(_ context.Context, msg mail.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

// lastOTP returns the first six-digit run in the latest mail.
func (c *capturingSender) lastOTP(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.sent, "no mail sent")

	text := c.sent[len(c.sent)-1].Text
	run := 0
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			run = 0
			continue
		}
		if run++; run == 6 {
			return text[i-5 : i+1]
		}
	}
	t.Fatalf("no OTP in mail: %q", text)
	return ""
}

// testServer wraps the API server with the collaborators tests reach into.
type testServer struct {
	*Server
	api      humatest.TestAPI
	store    store.Store
	sessions *service.SessionService
	mailer   *capturingSender
}

type testOption func(*Options)

func withAuthRateLimit(n int) testOption {
	return func(o *Options) {
		o.AuthRateLimiter = ratelimit.NewPerInterval(n, time.Minute, n)
	}
}

// setupTestServer wires every service over a temporary SQLite store and an in-memory index.
func setupTestServer(t *testing.T, opts ...testOption) *testServer {
	t.Helper()

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	logger := slog.New(slog.DiscardHandler)

	tokens, err := auth.NewTokenService(make([]byte, 32), 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	codes, err := otp.New(otp.Config{TTL: 5 * time.Minute, Digits: 6})
	require.NoError(t, err)
	t.Cleanup(codes.Close)

	index, err := search.NewSearchIndex(search.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	events := sse.NewManager(logger)
	mailer := &capturingSender{}
	clock := domain.SystemClock{}

	sessions := service.NewSessionService(st, tokens, clock, logger)
	searchService := service.NewSearchService(index, st, logger)
	hierarchy := service.NewHierarchyService(st, searchService, events, nil, clock, logger)
	slots := service.NewSlotService(st, events, nil, clock, logger)

	services := &Services{
		Auth: service.NewAuthService(service.AuthDeps{
			Store:    st,
			Sessions: sessions,
			Tokens:   tokens,
			Hasher:   auth.NewPasswordHasher(cheapPasswordParams),
			OTP:      codes,
			Mailer:   mailer,
			Clock:    clock,
			Logger:   logger,
		}),
		Admin:     service.NewAdminService(st, sessions, events, logger),
		Hierarchy: hierarchy,
		Slots:     slots,
		Bridge:    service.NewTopicTaskBridge(slots, hierarchy, st, logger),
		Exams:     service.NewExamService(st, searchService, clock, logger),
		Progress:  service.NewProgressService(st, logger),
		Search:    searchService,
	}

	options := Options{
		SSEManager:  events,
		SearchIndex: index,
		OTP:         codes,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.AuthRateLimiter != nil {
		t.Cleanup(options.AuthRateLimiter.Stop)
	}

	server := NewServer(st, services, options, logger)

	return &testServer{
		Server:   server,
		api:      humatest.Wrap(t, server.API()),
		store:    st,
		sessions: sessions,
		mailer:   mailer,
	}
}

// createUser stores a user directly and returns it with a bearer header for it.
func (ts *testServer) createUser(t *testing.T, email string, role domain.Role) (*domain.User, string) {
	t.Helper()
	ctx := context.Background()

	userID, err := id.Generate(id.PrefixUser)
	require.NoError(t, err)

	now := time.Now().UTC()
	user := &domain.User{
		Syncable:  domain.Syncable{ID: userID, CreatedAt: now, UpdatedAt: now},
		Email:     email,
		FirstName: "Test",
		Role:      role,
	}
	require.NoError(t, ts.store.CreateUser(ctx, user))

	session, err := ts.sessions.CreateSession(ctx, user, service.ClientInfo{})
	require.NoError(t, err)

	return user, "Authorization: Bearer " + session.AccessToken
}

// decode unmarshals a success envelope and fails the test on an error envelope.
func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	require.True(t, env.Success, string(body))
	return env.Data
}

// decodeError unmarshals an error envelope.
func decodeError(t *testing.T, body []byte) testEnvelope[json.RawMessage] {
	t.Helper()
	var env testEnvelope[json.RawMessage]
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	require.False(t, env.Success, string(body))
	return env
}

func TestHealth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	health := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, statusHealthy, health.Status)
	assert.Equal(t, Version, health.Version)
	for _, name := range []string{"store", "search", "otp", "sse"} {
		require.Contains(t, health.Components, name)
		assert.Equal(t, statusHealthy, health.Components[name].Status, name)
	}
}

func TestRequestID(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	assert.NotEmpty(t, resp.Header().Get(requestIDHeader))

	const inbound = "5f0c6f55-6a43-4c8d-9b1e-1c3a0a9f2b11"
	resp = ts.api.Get("/health", requestIDHeader+": "+inbound)
	assert.Equal(t, inbound, resp.Header().Get(requestIDHeader))

	resp = ts.api.Get("/health", requestIDHeader+": not-a-uuid")
	assert.NotEqual(t, "not-a-uuid", resp.Header().Get(requestIDHeader))
}

func TestUnauthenticated(t *testing.T) {
	ts := setupTestServer(t)

	for _, path := range []string{"/api/v1/books", "/api/v1/slots", "/api/v1/exams", "/api/v1/progress", "/api/v1/auth/me"} {
		t.Run(path, func(t *testing.T) {
			resp := ts.api.Get(path)
			assert.Equal(t, http.StatusUnauthorized, resp.Code)
			env := decodeError(t, resp.Body.Bytes())
			assert.Equal(t, "UNAUTHORIZED", env.Code)
		})
	}
}

func TestInvalidToken(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/books", "Authorization: Bearer v4.local.garbage")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRateLimit(t *testing.T) {
	ts := setupTestServer(t, withAuthRateLimit(2))

	body := map[string]any{"email": "nobody@example.com", "password": "whatever-password"}
	for range 2 {
		resp := ts.api.Post("/api/v1/auth/login", body)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	}

	resp := ts.api.Post("/api/v1/auth/login", body)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	env := decodeError(t, resp.Body.Bytes())
	assert.Equal(t, "RATE_LIMITED", env.Code)

	// Non-auth routes are not throttled.
	resp = ts.api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestOpenAPIDocument(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/openapi.json")
	require.Equal(t, http.StatusOK, resp.Code)

	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &doc))
	for _, path := range []string{
		"/api/v1/books/{bookId}",
		"/api/v1/topics/{topicId}/toggle",
		"/api/v1/slots/{slotId}/tasks/{taskId}/toggle",
		"/api/v1/exams/next",
	} {
		assert.Contains(t, doc.Paths, path)
	}
}
