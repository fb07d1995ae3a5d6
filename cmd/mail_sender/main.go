package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ce_platform/internal/config"
	sl "ce_platform/internal/lib/logger"
	"ce_platform/internal/models"
	"ce_platform/internal/notify"
	"ce_platform/internal/notify/mailgun"
	"ce_platform/internal/notify/smtp"
	"ce_platform/internal/rabbitmq"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad("./config/config.yaml")
	log := setupLogger(cfg.Env)

	log.Info("Starting mail_sender", slog.String("env", cfg.Env))

	startConsumer(ctx, cfg, log)
}

func startConsumer(ctx context.Context, cfg *config.Config, log *slog.Logger) {
	r, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to init rabbitmq", sl.Err(err))
		return
	}
	defer r.Close()

	transport := mailgun.New(
		cfg.Mail.Mailgun.APIKey,
		cfg.Mail.Mailgun.Domain,
		cfg.Mail.Mailgun.BaseURL,
		cfg.Mail.Mailgun.Timeout,
	)

	var fallback notify.Transport
	if cfg.Mail.SMTP.Host != "" {
		fallback = &smtp.Mailer{
			Host:     cfg.Mail.SMTP.Host,
			Port:     cfg.Mail.SMTP.Port,
			Username: cfg.Mail.SMTP.Username,
			Password: cfg.Mail.SMTP.Password,
		}
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		err := r.StartReading(ctx, func(msg []byte) {
			var job models.EmailJob
			if err := json.Unmarshal(msg, &job); err != nil {
				log.Error("failed to unmarshal job", sl.Err(err))
				return
			}

			deliver(ctx, log, transport, fallback, cfg.Mail.FromAddress, job)
		})
		if err != nil {
			log.Error("failed to start reading", sl.Err(err))
			return
		}
	}()

	log.Info("consumer successfully started")

	select {
	case <-ctx.Done():
		log.Info("shutting down consumer...")
	case <-done:
		log.Info("consumer finished the work")
	}

	log.Info("service gracefully stopped")
}

// deliver tries the primary transport and falls back to SMTP. A job that
// fails both stays failed; the queue already acked it, so the outcome is
// only visible in the logs.
func deliver(
	ctx context.Context,
	log *slog.Logger,
	transport, fallback notify.Transport,
	from string,
	job models.EmailJob,
) {
	msg := notify.Message{
		From:           from,
		To:             job.To,
		Subject:        job.Subject,
		HTML:           job.HTML,
		Text:           job.Text,
		AttachmentName: job.AttachmentName,
		Attachment:     job.Attachment,
	}

	id, err := transport.Send(ctx, msg)
	if err == nil {
		log.Info("job delivered",
			slog.String("transport", transport.Name()),
			slog.String("message_id", id),
			slog.String("category", job.Category),
		)
		return
	}

	log.Error("primary transport failed",
		slog.String("transport", transport.Name()), sl.Err(err))

	if fallback == nil {
		return
	}

	if _, err := fallback.Send(ctx, msg); err != nil {
		log.Error("fallback transport failed",
			slog.String("transport", fallback.Name()), sl.Err(err))
		return
	}

	log.Info("job delivered via fallback", slog.String("category", job.Category))
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
