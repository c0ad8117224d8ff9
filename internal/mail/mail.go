// Package mail renders transactional mail and hands it to a delivery backend:
// the log (development), an AMQP queue (API process) or SMTP (mailer worker).
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"
)

// Message is one outgoing mail. It is also the AMQP message body.
type Message struct {
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	HTML     string    `json:"html"`
	Text     string    `json:"text"`
	Kind     string    `json:"kind"`
	QueuedAt time.Time `json:"queued_at"`
}

// Sender delivers or enqueues a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// KindOTP marks signup verification mail.
const KindOTP = "otp"

var otpTemplate = template.Must(template.New("otp").Parse(`<!doctype html>
<html>
<body style="font-family: sans-serif; color: #1f2933;">
  <h2>Verify your email</h2>
  <p>Use this code to finish creating your StudyTrack account:</p>
  <p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">{{.Code}}</p>
  <p>The code expires in {{.Minutes}} minutes. If you did not request it, ignore this email.</p>
</body>
</html>`))

// OTPMessage renders the signup verification mail.
func OTPMessage(to, code string, ttl time.Duration) (Message, error) {
	minutes := max(int(ttl.Minutes()), 1)

	var html bytes.Buffer
	if err := otpTemplate.Execute(&html, struct {
		Code    string
		Minutes int
	}{code, minutes}); err != nil {
		return Message{}, fmt.Errorf("render otp mail: %w", err)
	}

	return Message{
		To:      to,
		Subject: "Your StudyTrack verification code",
		HTML:    html.String(),
		Text:    fmt.Sprintf("Your StudyTrack verification code is %s. It expires in %d minutes.", code, minutes),
		Kind:    KindOTP,
	}, nil
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a sender for development.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the plain-text body.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("Mail not delivered (log mode)",
		"to", msg.To,
		"subject", msg.Subject,
		"kind", msg.Kind,
		"body", msg.Text,
	)
	return nil
}
