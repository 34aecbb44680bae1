package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/roombooking/config"
	"github.com/Domenick1991/roombooking/internal/bootstrap"
	"github.com/Domenick1991/roombooking/internal/cache"
	"github.com/Domenick1991/roombooking/internal/kafka"
	"github.com/Domenick1991/roombooking/internal/lib/logger/sl"
	"github.com/Domenick1991/roombooking/internal/repository"
	"github.com/Domenick1991/roombooking/internal/service/booking"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
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

	log := setupLogger(cfg.Env)
	log.Info("starting roombooking", slog.String("env", cfg.Env), slog.String("storage", cfg.Storage.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		bookingRepo repository.BookingRepository
		userRepo    repository.UserRepository
		checks      []bootstrap.HealthCheck
	)

	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		bookingRepo = repository.NewMemoryBookingRepository()
		userRepo = repository.NewMemoryUserRepository(repository.SeedUsers()...)
	default:
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Error("connect postgres", sl.Err(err))
			os.Exit(1)
		}
		defer pool.Close()

		bookingRepo = repository.NewBookingRepository(pool)
		userRepo = repository.NewUserRepository(pool)
		checks = append(checks, bootstrap.HealthCheck{Name: "postgres", Check: pool.Ping})
	}

	opts := []booking.BookingServiceOption{
		booking.WithCancellationWindow(cfg.Booking.CancellationWindow()),
	}

	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.CalendarCacheTTLDuration())
		defer redisCache.Close()

		opts = append(opts, booking.WithCache(redisCache))
		checks = append(checks, bootstrap.HealthCheck{Name: "redis", Check: redisCache.Ping})
	}

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.BookingEventsTopic != "" {
		producer := kafka.NewProducer(log, cfg.Kafka.Brokers)
		defer producer.Close()

		opts = append(opts, booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic))
		checks = append(checks, bootstrap.HealthCheck{Name: "kafka", Check: producer.CheckConnection})
	}

	bookingService := booking.NewBookingService(log, bookingRepo, userRepo, opts...)

	if err := bootstrap.Run(ctx, log, cfg, bookingService, checks...); err != nil {
		log.Error("server error", sl.Err(err))
		os.Exit(1)
	}

	log.Info("roombooking stopped")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
