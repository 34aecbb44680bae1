package booking

import (
	"time"

	"github.com/Domenick1991/roombooking/internal/domain"
)

// BookingView is the externally visible shape of a booking.
type BookingView struct {
	ID           int64      `json:"id"`
	OwnerID      int64      `json:"owner_id"`
	OwnerName    string     `json:"owner_name"`
	Username     string     `json:"username"`
	ResourceName string     `json:"resource_name"`
	Start        time.Time  `json:"start"`
	End          time.Time  `json:"end"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
}

func NewBookingView(b *domain.Booking) *BookingView {
	if b == nil {
		return nil
	}
	view := &BookingView{
		ID:           b.ID,
		OwnerID:      b.Owner.ID,
		OwnerName:    b.Owner.DisplayName,
		Username:     b.Owner.Username,
		ResourceName: b.ResourceName,
		Start:        b.Interval.Start,
		End:          b.Interval.End,
		Status:       string(b.Status),
		CreatedAt:    b.CreatedAt,
	}
	if b.CancelledAt != nil {
		at := *b.CancelledAt
		view.CancelledAt = &at
	}
	return view
}

func NewBookingViews(bookings []domain.Booking) []BookingView {
	views := make([]BookingView, 0, len(bookings))
	for i := range bookings {
		views = append(views, *NewBookingView(&bookings[i]))
	}
	return views
}

// ParseDay accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
// Bare dates are read as UTC.
func ParseDay(value string) (time.Time, error) {
	if day, err := time.Parse(time.DateOnly, value); err == nil {
		return day, nil
	}
	return time.Parse(time.RFC3339, value)
}
