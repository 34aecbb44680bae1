package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/roombooking/config"
	"github.com/Domenick1991/roombooking/internal/audit"
	"github.com/Domenick1991/roombooking/internal/cache"
	"github.com/Domenick1991/roombooking/internal/kafka"
	"github.com/Domenick1991/roombooking/internal/lib/logger/sl"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		slog.Error("load config", sl.Err(err))
		os.Exit(1)
	}

	log := setupLogger(cfg.Env).With(slog.String("component", "worker"))

	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.BookingEventsTopic == "" {
		log.Error("kafka brokers and booking_events_topic are required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var journalOpts []audit.Option
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.CalendarCacheTTLDuration())
		defer redisCache.Close()
		journalOpts = append(journalOpts, audit.WithInvalidator(redisCache))
	}
	journal := audit.NewJournal(log, journalOpts...)

	consumer := kafka.NewConsumer(log, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.BookingEventsTopic)
	defer consumer.Close()

	log.Info("consuming booking events",
		slog.String("topic", cfg.Kafka.BookingEventsTopic),
		slog.String("group", cfg.Kafka.GroupID),
	)

	if err := consumer.Consume(ctx, journal.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped", sl.Err(err))
		os.Exit(1)
	}

	log.Info("worker stopped")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case "dev":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case "prod":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
