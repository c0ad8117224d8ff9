package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds every instrument the server records. Build it once with NewMetrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	TopicsToggled metric.Int64Counter
	TasksToggled  metric.Int64Counter
	SlotConflicts metric.Int64Counter
	OTPIssued     metric.Int64Counter
	Logins        metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"studytrack_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("create http_requests_total: %w", err)
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"studytrack_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	); err != nil {
		return nil, fmt.Errorf("create http_request_duration: %w", err)
	}

	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"studytrack_http_active_requests",
		metric.WithDescription("Currently active HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("create http_active_requests: %w", err)
	}

	if m.TopicsToggled, err = meter.Int64Counter(
		"studytrack_topics_toggled_total",
		metric.WithDescription("Topic completion toggles"),
	); err != nil {
		return nil, fmt.Errorf("create topics_toggled: %w", err)
	}

	if m.TasksToggled, err = meter.Int64Counter(
		"studytrack_tasks_toggled_total",
		metric.WithDescription("Slot task completion toggles"),
	); err != nil {
		return nil, fmt.Errorf("create tasks_toggled: %w", err)
	}

	if m.SlotConflicts, err = meter.Int64Counter(
		"studytrack_slot_conflicts_total",
		metric.WithDescription("Slot writes rejected for overlapping another slot"),
	); err != nil {
		return nil, fmt.Errorf("create slot_conflicts: %w", err)
	}

	if m.OTPIssued, err = meter.Int64Counter(
		"studytrack_otp_issued_total",
		metric.WithDescription("Signup one-time passwords issued"),
	); err != nil {
		return nil, fmt.Errorf("create otp_issued: %w", err)
	}

	if m.Logins, err = meter.Int64Counter(
		"studytrack_logins_total",
		metric.WithDescription("Login attempts by method and result"),
	); err != nil {
		return nil, fmt.Errorf("create logins: %w", err)
	}

	return m, nil
}

// RecordTopicToggle counts a topic toggle. completed is the state after the toggle.
func (m *Metrics) RecordTopicToggle(ctx context.Context, completed bool) {
	if m == nil {
		return
	}
	m.TopicsToggled.Add(ctx, 1, metric.WithAttributes(attribute.Bool("completed", completed)))
}

// RecordTaskToggle counts a slot task toggle.
func (m *Metrics) RecordTaskToggle(ctx context.Context, kind string, completed bool) {
	if m == nil {
		return
	}
	m.TasksToggled.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("completed", completed),
	))
}

// RecordSlotConflict counts a rejected overlapping slot.
func (m *Metrics) RecordSlotConflict(ctx context.Context) {
	if m == nil {
		return
	}
	m.SlotConflicts.Add(ctx, 1)
}

// RecordOTPIssued counts an OTP send.
func (m *Metrics) RecordOTPIssued(ctx context.Context) {
	if m == nil {
		return
	}
	m.OTPIssued.Add(ctx, 1)
}

// RecordLogin counts a login attempt. method is password, signup, google or firebase.
func (m *Metrics) RecordLogin(ctx context.Context, method string, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.Logins.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("result", result),
	))
}
