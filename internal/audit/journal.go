// Package audit keeps the journal of booking lifecycle events read from Kafka.
package audit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Domenick1991/roombooking/internal/kafka"
	"github.com/Domenick1991/roombooking/internal/lib/logger/sl"
)

const defaultRemember = 1024

// Invalidator drops cached views derived from bookings.
type Invalidator interface {
	InvalidateActiveBookings(ctx context.Context) error
}

// Journal writes one structured record per distinct event. Delivery is at
// least once, so recently seen event IDs are skipped.
type Journal struct {
	log         *slog.Logger
	invalidator Invalidator

	mu       sync.Mutex
	seen     map[string]struct{}
	order    []string
	remember int
}

type Option func(*Journal)

func WithInvalidator(inv Invalidator) Option {
	return func(j *Journal) {
		j.invalidator = inv
	}
}

func WithRemember(n int) Option {
	return func(j *Journal) {
		if n > 0 {
			j.remember = n
		}
	}
}

func NewJournal(log *slog.Logger, opts ...Option) *Journal {
	j := &Journal{
		log:      log,
		seen:     make(map[string]struct{}),
		remember: defaultRemember,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Record journals event and reports whether it was new.
func (j *Journal) Record(ctx context.Context, event kafka.BookingEvent) bool {
	if !j.markSeen(event.ID) {
		j.log.Debug("duplicate booking event skipped", slog.String("event_id", event.ID))
		return false
	}

	attrs := []slog.Attr{
		slog.String("event_id", event.ID),
		slog.String("type", event.Type),
		slog.Int64("booking_id", event.BookingID),
		slog.Int64("actor_id", event.ActorID),
		slog.Time("occurred_at", event.OccurredAt),
	}
	if event.OwnerID != 0 {
		attrs = append(attrs, slog.Int64("owner_id", event.OwnerID))
	}
	if event.ResourceName != "" {
		attrs = append(attrs, slog.String("resource", event.ResourceName))
	}
	if event.Start != nil && event.End != nil {
		attrs = append(attrs, slog.Time("start", *event.Start), slog.Time("end", *event.End))
	}
	if event.Status != "" {
		attrs = append(attrs, slog.String("status", event.Status))
	}

	j.log.LogAttrs(ctx, slog.LevelInfo, "booking event", attrs...)
	return true
}

// HandleEvent is a kafka.EventHandler. It journals the event and, the first
// time an event is seen, drops the cached calendar.
func (j *Journal) HandleEvent(ctx context.Context, event kafka.BookingEvent) error {
	if !j.Record(ctx, event) {
		return nil
	}

	if j.invalidator != nil {
		if err := j.invalidator.InvalidateActiveBookings(ctx); err != nil {
			j.log.Warn("calendar cache invalidation failed", sl.Err(err), slog.Int64("booking_id", event.BookingID))
		}
	}
	return nil
}

func (j *Journal) markSeen(id string) bool {
	if id == "" {
		return true
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, ok := j.seen[id]; ok {
		return false
	}
	j.seen[id] = struct{}{}
	j.order = append(j.order, id)
	if len(j.order) > j.remember {
		delete(j.seen, j.order[0])
		j.order = j.order[1:]
	}
	return true
}
