// Package main provides the OTP mail worker. It consumes the mail queue published by the
// API server in queue mode and delivers each message over SMTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/studytrackapp/studytrack-server/internal/config"
	"github.com/studytrackapp/studytrack-server/internal/logger"
	"github.com/studytrackapp/studytrack-server/internal/mail"
)

// prefetch bounds unacknowledged deliveries held by this worker.
const prefetch = 4

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mailer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.Mail.SMTPHost,
		Port:     cfg.Mail.SMTPPort,
		Username: cfg.Mail.SMTPUser,
		Password: cfg.Mail.SMTPPass,
		From:     cfg.Mail.From,
	})
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(cfg.Mail.AMQPURL)
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if _, err := mail.DeclareQueue(ch, cfg.Mail.Queue); err != nil {
		return err
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(cfg.Mail.Queue, "studytrack-mailer", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", cfg.Mail.Queue, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Mailer consuming",
		"queue", cfg.Mail.Queue,
		"smtp_host", cfg.Mail.SMTPHost,
		"smtp_port", cfg.Mail.SMTPPort,
	)

	err = mail.Consume(ctx, deliveries, sender, log.Logger)
	if err != nil && ctx.Err() == nil {
		return err
	}

	log.Info("Mailer stopped")
	return nil
}
