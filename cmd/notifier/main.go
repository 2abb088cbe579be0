// Command notifier consumes order events from kafka and emails payment
// receipts to parents.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sekolah-catering/api/internal/config"
	"github.com/sekolah-catering/api/internal/events"
	"github.com/sekolah-catering/api/internal/logger"
	"github.com/sekolah-catering/api/internal/notify"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := logger.Init(cfg.IsDevelopment()); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	log := logger.L().Named("notifier")

	if len(cfg.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if cfg.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST is required")
	}

	sender := notify.NewEmailSender(notify.NewDialer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}), cfg.SMTPFrom, log)

	consumer := events.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTopic, sender.Handle, log)
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("notifier started",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group_id", cfg.KafkaGroupID),
	)
	return consumer.Run(ctx)
}
