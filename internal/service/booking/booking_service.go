package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Domenick1991/roombooking/internal/clock"
	"github.com/Domenick1991/roombooking/internal/domain"
	"github.com/Domenick1991/roombooking/internal/kafka"
	"github.com/Domenick1991/roombooking/internal/lib/logger/sl"
	"github.com/Domenick1991/roombooking/internal/repository"
	"github.com/google/uuid"
)

const (
	msgUserNotFound      = "User not found"
	msgBookingNotFound   = "Booking not found"
	msgPastStart         = "Cannot book time in the past"
	msgInvalidInterval   = "End time must be after start time"
	msgSlotTaken         = "This time slot is already booked"
	msgNotOwner          = "You can only cancel your own bookings"
	msgAlreadyCancelled  = "Booking is already cancelled"
	msgAdminOnlyDeletion = "Only admin can delete bookings"
)

// instantPrecision is the resolution of a TIMESTAMPTZ column. Instants are
// truncated to it before any rule sees them so every store keeps them exactly.
const instantPrecision = time.Microsecond

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput, ownerID int64) (*BookingView, error)
	GetBookingByID(ctx context.Context, id int64) (*BookingView, error)
	GetUserBookings(ctx context.Context, userID int64) ([]BookingView, error)
	GetAllActiveBookings(ctx context.Context) ([]BookingView, error)
	GetBookingsByDate(ctx context.Context, date time.Time) ([]BookingView, error)
	CancelBooking(ctx context.Context, id, userID int64) (*BookingView, error)
	DeleteBooking(ctx context.Context, id, userID int64) error
}

type Cache interface {
	GetActiveBookings(ctx context.Context) ([]domain.Booking, error)
	SetActiveBookings(ctx context.Context, bookings []domain.Booking) error
	InvalidateActiveBookings(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	log                *slog.Logger
	bookings           repository.BookingRepository
	users              repository.UserRepository
	clock              clock.Clock
	cache              Cache
	producer           Producer
	eventsTopic        string
	cancellationWindow time.Duration
}

type CreateBookingInput struct {
	ResourceName string    `json:"resource_name"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
}

type BookingServiceOption func(*BookingService)

func WithClock(c clock.Clock) BookingServiceOption {
	return func(s *BookingService) {
		s.clock = c
	}
}

// WithCache must not be given a typed nil.
func WithCache(c Cache) BookingServiceOption {
	return func(s *BookingService) {
		s.cache = c
	}
}

func WithProducer(p Producer, topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = p
		s.eventsTopic = topic
	}
}

func WithCancellationWindow(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.cancellationWindow = d
		}
	}
}

func NewBookingService(
	log *slog.Logger,
	bookings repository.BookingRepository,
	users repository.UserRepository,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		log:                log,
		bookings:           bookings,
		users:              users,
		clock:              clock.System{},
		cancellationWindow: domain.DefaultCancellationWindow,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBooking validates owner, start, interval and overlap in that order
// and stores a new ACTIVE booking.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput, ownerID int64) (*BookingView, error) {
	const op = "booking.CreateBooking"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("owner_id", ownerID),
		slog.String("resource", input.ResourceName),
	)

	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound(msgUserNotFound)
		}
		return nil, fmt.Errorf("%s: get owner: %w", op, err)
	}

	now := s.now()
	start := input.Start.UTC().Truncate(instantPrecision)
	end := input.End.UTC().Truncate(instantPrecision)
	if start.Before(now) {
		return nil, domain.BusinessRuleViolation(msgPastStart)
	}

	interval := domain.NewInterval(start, end)
	if !interval.Valid() {
		return nil, domain.BusinessRuleViolation(msgInvalidInterval)
	}

	booking := &domain.Booking{
		Owner:        *owner,
		ResourceName: input.ResourceName,
		Interval:     interval,
		Status:       domain.BookingStatusActive,
		CreatedAt:    now,
	}

	err = s.bookings.WithResourceLock(ctx, booking.ResourceName, func(ctx context.Context, repo repository.BookingRepository) error {
		overlap, err := repo.ExistsOverlap(ctx, booking.ResourceName, booking.Interval)
		if err != nil {
			return err
		}
		if overlap {
			return domain.BusinessRuleViolation(msgSlotTaken)
		}
		return repo.Create(ctx, booking)
	})
	if err != nil {
		if errors.Is(err, repository.ErrOverlap) {
			return nil, domain.BusinessRuleViolation(msgSlotTaken)
		}
		if _, ok := domain.KindOf(err); ok {
			return nil, err
		}
		log.Error("failed to store booking", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("booking created", slog.Int64("booking_id", booking.ID))

	s.changed(ctx, s.event(kafka.EventBookingCreated, booking, ownerID))
	return NewBookingView(booking), nil
}

func (s *BookingService) GetBookingByID(ctx context.Context, id int64) (*BookingView, error) {
	const op = "booking.GetBookingByID"

	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound(msgBookingNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return NewBookingView(booking), nil
}

func (s *BookingService) GetUserBookings(ctx context.Context, userID int64) ([]BookingView, error) {
	const op = "booking.GetUserBookings"

	bookings, err := s.bookings.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return NewBookingViews(bookings), nil
}

func (s *BookingService) GetAllActiveBookings(ctx context.Context) ([]BookingView, error) {
	const op = "booking.GetAllActiveBookings"

	bookings, err := s.activeBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return NewBookingViews(bookings), nil
}

func (s *BookingService) GetBookingsByDate(ctx context.Context, date time.Time) ([]BookingView, error) {
	const op = "booking.GetBookingsByDate"

	bookings, err := s.bookings.ListActiveOnDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return NewBookingViews(bookings), nil
}

// CancelBooking lets the owner cancel an ACTIVE booking up to the
// cancellation deadline, inclusive.
func (s *BookingService) CancelBooking(ctx context.Context, id, userID int64) (*BookingView, error) {
	const op = "booking.CancelBooking"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("booking_id", id),
		slog.Int64("user_id", userID),
	)

	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound(msgBookingNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if booking.Owner.ID != userID {
		return nil, domain.Unauthorized(msgNotOwner)
	}
	if !booking.IsActive() {
		return nil, domain.BusinessRuleViolation(msgAlreadyCancelled)
	}

	// The deadline is checked against the exact clock; only the stored
	// cancellation instant is truncated.
	now := s.clock.Now().UTC()
	deadline := booking.CancellationDeadline(s.cancellationWindow)
	if now.After(deadline) {
		return nil, domain.BusinessRuleViolation(
			"Cannot cancel booking within %s of start time. Cancellation deadline was: %s",
			formatWindow(s.cancellationWindow), deadline.Format(time.RFC3339),
		)
	}

	cancelled, err := s.bookings.MarkCancelled(ctx, id, now.Truncate(instantPrecision))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotActive):
			return nil, domain.BusinessRuleViolation(msgAlreadyCancelled)
		case errors.Is(err, repository.ErrNotFound):
			return nil, domain.NotFound(msgBookingNotFound)
		}
		log.Error("failed to cancel booking", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("booking cancelled")

	s.changed(ctx, s.event(kafka.EventBookingCancelled, cancelled, userID))
	return NewBookingView(cancelled), nil
}

// DeleteBooking removes a booking for good. Admins only; the cancellation
// deadline does not apply.
func (s *BookingService) DeleteBooking(ctx context.Context, id, userID int64) error {
	const op = "booking.DeleteBooking"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("booking_id", id),
		slog.Int64("user_id", userID),
	)

	exists, err := s.bookings.ExistsByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return domain.NotFound(msgBookingNotFound)
	}

	requester, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NotFound(msgUserNotFound)
		}
		return fmt.Errorf("%s: get requester: %w", op, err)
	}
	if !requester.IsAdmin() {
		return domain.Unauthorized(msgAdminOnlyDeletion)
	}

	if err := s.bookings.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NotFound(msgBookingNotFound)
		}
		log.Error("failed to delete booking", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("booking deleted")

	s.changed(ctx, s.event(kafka.EventBookingDeleted, &domain.Booking{ID: id}, userID))
	return nil
}

func (s *BookingService) activeBookings(ctx context.Context) ([]domain.Booking, error) {
	if s.cache != nil {
		cached, err := s.cache.GetActiveBookings(ctx)
		if err == nil && cached != nil {
			return cached, nil
		}
		if err != nil {
			s.log.Warn("calendar cache read failed", sl.Err(err))
		}
	}

	bookings, err := s.bookings.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetActiveBookings(ctx, bookings); err != nil {
			s.log.Warn("calendar cache write failed", sl.Err(err))
		}
	}
	return bookings, nil
}

// changed runs the side effects of a successful mutation. Neither the cache
// nor the event stream can fail the operation at this point.
func (s *BookingService) changed(ctx context.Context, event kafka.BookingEvent) {
	if s.cache != nil {
		if err := s.cache.InvalidateActiveBookings(ctx); err != nil {
			s.log.Warn("calendar cache invalidation failed", sl.Err(err), slog.Int64("booking_id", event.BookingID))
		}
	}

	if err := s.publish(ctx, event); err != nil {
		s.log.Warn("failed to publish booking event",
			sl.Err(err),
			slog.String("type", event.Type),
			slog.Int64("booking_id", event.BookingID),
		)
	}
}

func (s *BookingService) event(eventType string, b *domain.Booking, actorID int64) kafka.BookingEvent {
	event := kafka.BookingEvent{
		ID:           uuid.NewString(),
		Type:         eventType,
		BookingID:    b.ID,
		OwnerID:      b.Owner.ID,
		ActorID:      actorID,
		ResourceName: b.ResourceName,
		Status:       string(b.Status),
		OccurredAt:   s.clock.Now(),
	}
	if !b.Interval.Start.IsZero() {
		start, end := b.Interval.Start, b.Interval.End
		event.Start, event.End = &start, &end
	}
	return event
}

func (s *BookingService) publish(ctx context.Context, event kafka.BookingEvent) error {
	if s.producer == nil || s.eventsTopic == "" {
		return nil
	}
	return s.producer.Publish(ctx, s.eventsTopic, fmt.Sprintf("%d", event.BookingID), event)
}

func (s *BookingService) now() time.Time {
	return s.clock.Now().UTC().Truncate(instantPrecision)
}

func formatWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int64(d/time.Hour))
	}
	return d.String()
}

var _ BookingUseCase = (*BookingService)(nil)
