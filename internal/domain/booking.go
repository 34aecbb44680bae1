package domain

import "time"

type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "ACTIVE"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// DefaultCancellationWindow is how long before start an owner may still cancel.
const DefaultCancellationWindow = 24 * time.Hour

type Booking struct {
	ID           int64
	Owner        User
	ResourceName string
	Interval     Interval
	Status       BookingStatus
	CreatedAt    time.Time
	CancelledAt  *time.Time
}

func (b *Booking) IsActive() bool {
	return b.Status == BookingStatusActive
}

// CancellationDeadline is the latest instant at which the owner may cancel.
func (b *Booking) CancellationDeadline(window time.Duration) time.Time {
	return b.Interval.Start.Add(-window)
}

// Cancel moves an active booking to CANCELLED. It reports false when the
// booking was not active, leaving it untouched.
func (b *Booking) Cancel(at time.Time) bool {
	if !b.IsActive() {
		return false
	}
	b.Status = BookingStatusCancelled
	b.CancelledAt = &at
	return true
}
