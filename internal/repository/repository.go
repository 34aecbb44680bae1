package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/roombooking/internal/domain"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrOverlap   = errors.New("interval overlaps an active booking")
	ErrNotActive = errors.New("booking is not active")
)

type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	// ListByOwner returns every booking of the user, ordered by start.
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Booking, error)
	// ListActive returns ACTIVE bookings ordered by start.
	ListActive(ctx context.Context) ([]domain.Booking, error)
	// ListActiveOnDate returns ACTIVE bookings starting on the UTC calendar day of day.
	ListActiveOnDate(ctx context.Context, day time.Time) ([]domain.Booking, error)
	ExistsOverlap(ctx context.Context, resourceName string, interval domain.Interval) (bool, error)
	// Create inserts a new booking and assigns its ID.
	Create(ctx context.Context, booking *domain.Booking) error
	// MarkCancelled flips an ACTIVE booking to CANCELLED. Returns ErrNotActive
	// if the booking exists but is no longer ACTIVE.
	MarkCancelled(ctx context.Context, id int64, at time.Time) (*domain.Booking, error)
	Delete(ctx context.Context, id int64) error
	// WithResourceLock runs fn while holding a lock scoped to resourceName.
	// Overlap checks and inserts made through repo inside fn are atomic with
	// respect to other callers locking the same resource.
	WithResourceLock(ctx context.Context, resourceName string, fn func(ctx context.Context, repo BookingRepository) error) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// DayRange returns [00:00, next 00:00) of day's UTC calendar date.
func DayRange(day time.Time) (time.Time, time.Time) {
	d := day.UTC()
	from := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 0, 1)
}
