package repository

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewBookingRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewBookingRepository(pool)
	assert.NotNil(t, repo)
}

func TestNewUserRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewUserRepository(pool)
	assert.NotNil(t, repo)
}

func TestDayRange(t *testing.T) {
	from, to := DayRange(time.Date(2030, 5, 6, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2030, 5, 6, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2030, 5, 7, 0, 0, 0, 0, time.UTC), to)

	// 01:00 at UTC+3 is still the previous UTC day
	from, _ = DayRange(time.Date(2030, 5, 6, 1, 0, 0, 0, time.FixedZone("MSK", 3*3600)))
	assert.Equal(t, time.Date(2030, 5, 5, 0, 0, 0, 0, time.UTC), from)
}
