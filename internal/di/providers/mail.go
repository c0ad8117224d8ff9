package providers

import (
	"github.com/samber/do/v2"

	"github.com/studytrackapp/studytrack-server/internal/config"
	"github.com/studytrackapp/studytrack-server/internal/logger"
	"github.com/studytrackapp/studytrack-server/internal/mail"
)

// MailerHandle wraps the configured mail.Sender with shutdown capability.
type MailerHandle struct {
	mail.Sender
	queue *mail.QueueSender
}

// Shutdown implements do.Shutdownable.
func (h *MailerHandle) Shutdown() error {
	if h.queue == nil {
		return nil
	}
	return h.queue.Shutdown()
}

// ProvideMailer provides the OTP mail sender.
// In queue mode mail is published to AMQP for cmd/mailer; otherwise it is logged.
func ProvideMailer(i do.Injector) (*MailerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Mail.Mode != config.MailModeQueue {
		log.Info("Mail delivery is log-only")
		return &MailerHandle{Sender: mail.NewLogSender(log.Logger)}, nil
	}

	queue, err := mail.DialQueue(cfg.Mail.AMQPURL, cfg.Mail.Queue)
	if err != nil {
		return nil, err
	}

	log.Info("Mail queue connected", "queue", cfg.Mail.Queue)

	return &MailerHandle{Sender: queue, queue: queue}, nil
}
