package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/config"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/email"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/events"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.LoadAlertWorker()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.ServiceName, cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := events.NewConsumer(cfg.Kafka, logger)
	defer consumer.Close()

	alerter := email.NewAlerter(email.PickSender(cfg.SMTP, logger), cfg.SMTP.To, logger)
	logger.Info("alert worker starting",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.ReconciliationTopic),
	)
	return consumer.Run(ctx, alerter.Handle)
}
