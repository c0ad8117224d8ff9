package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// QueueSender publishes messages to a durable AMQP queue for cmd/mailer.
type QueueSender struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string

	// amqp channels are not safe for concurrent publishing.
	mu sync.Mutex
}

// DialQueue connects to the broker and declares the mail queue.
func DialQueue(url, queue string) (*QueueSender, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := DeclareQueue(ch, queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &QueueSender{conn: conn, ch: ch, queue: queue}, nil
}

// DeclareQueue declares the durable mail queue on ch.
func DeclareQueue(ch *amqp.Channel, queue string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return q, nil
}

// Send publishes msg as a persistent JSON message.
func (s *QueueSender) Send(ctx context.Context, msg Message) error {
	if msg.QueuedAt.IsZero() {
		msg.QueuedAt = time.Now().UTC()
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal mail: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.ch.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.QueuedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish mail: %w", err)
	}
	return nil
}

// Shutdown closes the channel and connection.
func (s *QueueSender) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.ch.Close(), s.conn.Close())
}

// ErrPermanent marks a delivery failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent mail failure")

// Consume delivers every message from deliveries through sender until the channel
// closes or ctx is done. Malformed and permanently failing messages are dropped;
// transient failures are requeued.
func Consume(ctx context.Context, deliveries <-chan amqp.Delivery, sender Sender, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			handleDelivery(ctx, d, sender, logger)
		}
	}
}

func handleDelivery(ctx context.Context, d amqp.Delivery, sender Sender, logger *slog.Logger) {
	var msg Message
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.To == "" {
		logger.Error("Dropping malformed mail message", "error", err, "delivery_tag", d.DeliveryTag)
		_ = d.Nack(false, false)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err := sender.Send(sendCtx, msg)
	cancel()

	switch {
	case err == nil:
		if err := d.Ack(false); err != nil {
			logger.Error("Failed to ack mail message", "error", err, "to", msg.To)
		}
		logger.Info("Mail delivered", "to", msg.To, "kind", msg.Kind)
	case errors.Is(err, ErrPermanent):
		logger.Error("Dropping undeliverable mail", "error", err, "to", msg.To)
		_ = d.Nack(false, false)
	default:
		logger.Warn("Mail delivery failed, requeueing", "error", err, "to", msg.To)
		_ = d.Nack(false, true)
	}
}
