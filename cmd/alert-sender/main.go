package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/gst-compliance/internal/config"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/sl"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/smtp"
	"github.com/magabrotheeeer/gst-compliance/internal/rabbitmq"
	senderservice "github.com/magabrotheeeer/gst-compliance/internal/services/sender"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger.Info("starting alert-sender", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("success to connect to RabbitMQ:", slog.String("URL", cfg.RabbitMQURL))
	defer func() {
		_ = conn.Close()
	}()

	ch, err := rabbitmq.SetupChannel(conn)
	if err != nil {
		logger.Error("failed to setup RabbitMQ channel", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("success to setup RabbitMQ channel")
	defer func() {
		_ = ch.Close()
	}()

	transport := smtp.NewTransport(cfg, logger)
	sender := senderservice.NewSenderService(logger, transport)

	if err := rabbitmq.ConsumerMessage(ctx, ch, rabbitmq.AlertsQueue, sender.SendDocumentAlert); err != nil {
		logger.Error("failed to start consumer", sl.Err(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("alert-sender shutting down gracefully")
}
