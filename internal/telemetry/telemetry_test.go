package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, p *Provider) string {
	t.Helper()
	rec := httptest.NewRecorder()
	p.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)
	defer p.Shutdown()

	assert.Nil(t, p.MetricsHandler())
	require.NotNil(t, p.Metrics)

	// No-op instruments accept records.
	p.Metrics.RecordTopicToggle(context.Background(), true)
	p.Metrics.RecordLogin(context.Background(), "password", false)
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordTopicToggle(context.Background(), true)
		m.RecordTaskToggle(context.Background(), "TEXTBOOK", true)
		m.RecordSlotConflict(context.Background())
		m.RecordOTPIssued(context.Background())
		m.RecordLogin(context.Background(), "google", true)
	})
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	p, err := New(Config{Enabled: true, ServiceName: "studytrack-test"})
	require.NoError(t, err)
	defer p.Shutdown()

	var traceID string
	r := chi.NewRouter()
	r.Use(p.Middleware)
	r.Get("/api/v1/books/{bookId}", func(w http.ResponseWriter, req *http.Request) {
		traceID = TraceID(req)
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/books/book-123", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Len(t, traceID, 32)

	body := scrape(t, p)
	assert.Contains(t, body, "studytrack_http_requests_total")
	assert.Contains(t, body, `route="/api/v1/books/{bookId}"`)
	assert.NotContains(t, body, "book-123")
	assert.Contains(t, body, "go_goroutines")
}

func TestDomainCounters(t *testing.T) {
	p, err := New(Config{Enabled: true, ServiceName: "studytrack-test"})
	require.NoError(t, err)
	defer p.Shutdown()

	ctx := context.Background()
	p.Metrics.RecordTopicToggle(ctx, true)
	p.Metrics.RecordSlotConflict(ctx)
	p.Metrics.RecordLogin(ctx, "password", true)

	body := scrape(t, p)
	assert.Contains(t, body, "studytrack_topics_toggled_total")
	assert.Contains(t, body, "studytrack_slot_conflicts_total")
	assert.Contains(t, body, `method="password"`)
}

func TestStatusResponseWriter_DefaultsToOK(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := newStatusResponseWriter(rec)
	_, err := sw.Write([]byte("ok"))
	require.NoError(t, err)
	sw.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusOK, sw.statusCode)
	assert.Equal(t, rec, sw.Unwrap())
}
