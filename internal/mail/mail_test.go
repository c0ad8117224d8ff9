package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPMessage(t *testing.T) {
	msg, err := OTPMessage("ada@example.com", "042137", 5*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", msg.To)
	assert.Equal(t, KindOTP, msg.Kind)
	assert.Contains(t, msg.HTML, "042137")
	assert.Contains(t, msg.HTML, "5 minutes")
	assert.Contains(t, msg.Text, "042137")
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, s.Send(context.Background(), Message{To: "ada@example.com", Text: "code 123456"}))
	assert.Contains(t, buf.String(), "code 123456")
}

type fakeAck struct {
	mu      sync.Mutex
	acked   int
	dropped int
	requeue int
}

func (a *fakeAck) Ack(uint64, bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked++
	return nil
}

func (a *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if requeue {
		a.requeue++
	} else {
		a.dropped++
	}
	return nil
}

func (a *fakeAck) Reject(_ uint64, requeue bool) error {
	return a.Nack(0, false, requeue)
}

type senderFunc func(context.Context, Message) error

func (f senderFunc) Send(ctx context.Context, m Message) error { return f(ctx, m) }

func delivery(t *testing.T, ack *fakeAck, msg any) amqp.Delivery {
	t.Helper()
	var body []byte
	switch v := msg.(type) {
	case []byte:
		body = v
	default:
		var err error
		body, err = json.Marshal(v)
		require.NoError(t, err)
	}
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestConsume_AckNack(t *testing.T) {
	ack := &fakeAck{}
	sender := senderFunc(func(_ context.Context, m Message) error {
		switch m.To {
		case "flaky@example.com":
			return errors.New("connection reset")
		case "bounce@example.com":
			return ErrPermanent
		default:
			return nil
		}
	})

	deliveries := make(chan amqp.Delivery, 5)
	deliveries <- delivery(t, ack, Message{To: "ada@example.com"})
	deliveries <- delivery(t, ack, Message{To: "flaky@example.com"})
	deliveries <- delivery(t, ack, Message{To: "bounce@example.com"})
	deliveries <- delivery(t, ack, []byte("{not json"))
	deliveries <- delivery(t, ack, Message{})
	close(deliveries)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	require.NoError(t, Consume(context.Background(), deliveries, sender, logger))

	assert.Equal(t, 1, ack.acked)
	assert.Equal(t, 1, ack.requeue)
	assert.Equal(t, 3, ack.dropped)
}

func TestConsume_StopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Consume(ctx, make(chan amqp.Delivery), senderFunc(func(context.Context, Message) error { return nil }), slog.Default())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSMTPSender_Send(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "StudyTrack <no-reply@example.com>"})
	require.NoError(t, err)

	var gotAddr string
	var gotTo []string
	var gotBody string
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotBody = addr, to, string(msg)
		assert.Equal(t, "no-reply@example.com", from)
		return nil
	}

	msg, err := OTPMessage("Ada <ada@example.com>", "123456", 5*time.Minute)
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), msg))

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)
	assert.Contains(t, gotBody, "Subject: Your StudyTrack verification code")
	assert.Contains(t, gotBody, "multipart/alternative")
	assert.True(t, strings.Contains(gotBody, "123456"))
}

func TestSMTPSender_PermanentFailures(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{From: "not an address"})
	assert.Error(t, err)

	s, err := NewSMTPSender(SMTPConfig{Host: "h", Port: 25, From: "a@example.com"})
	require.NoError(t, err)
	err = s.Send(context.Background(), Message{To: "nope"})
	assert.ErrorIs(t, err, ErrPermanent)
}
