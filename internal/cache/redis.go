package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Domenick1991/roombooking/config"
	"github.com/Domenick1991/roombooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache holds the ACTIVE booking calendar, the hottest read path.
type RedisCache struct {
	client      *redis.Client
	calendarTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, calendarTTL time.Duration) *RedisCache {
	return NewRedisCacheFromClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		calendarTTL,
	)
}

func NewRedisCacheFromClient(client *redis.Client, calendarTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:      client,
		calendarTTL: calendarTTL,
	}
}

// GetActiveBookings returns nil, nil on a miss.
func (c *RedisCache) GetActiveBookings(ctx context.Context) ([]domain.Booking, error) {
	data, err := c.client.Get(ctx, activeBookingsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	bookings := make([]domain.Booking, 0)
	if err := json.Unmarshal(data, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (c *RedisCache) SetActiveBookings(ctx context.Context, bookings []domain.Booking) error {
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	payload, err := json.Marshal(bookings)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, activeBookingsKey(), payload, c.calendarTTL).Err()
}

func (c *RedisCache) InvalidateActiveBookings(ctx context.Context) error {
	return c.client.Del(ctx, activeBookingsKey()).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func activeBookingsKey() string {
	return "cache:bookings:active"
}
