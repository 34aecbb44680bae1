package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Domenick1991/roombooking/internal/lib/logger/sl"
	"github.com/segmentio/kafka-go"
)

var ErrMalformedEvent = errors.New("malformed booking event")

// EventHandler processes one decoded booking event. A returned error stops
// the consumer.
type EventHandler func(ctx context.Context, event BookingEvent) error

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	log    *slog.Logger
	reader messageReader
}

func NewConsumer(log *slog.Logger, brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		log: log,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume reads until ctx is done or handler fails. With a group ID set,
// offsets are committed after each message is read, so messages that cannot
// be decoded are logged and skipped.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		if err := c.dispatch(ctx, msg, handler); err != nil {
			return err
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg kafka.Message, handler EventHandler) error {
	event, err := DecodeEvent(msg.Value)
	if err != nil {
		c.log.Error("decode booking event",
			sl.Err(err),
			slog.String("topic", msg.Topic),
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
		)
		return nil
	}

	if err := handler(ctx, event); err != nil {
		return fmt.Errorf("handle booking event %s: %w", event.ID, err)
	}
	return nil
}

// DecodeEvent parses a message value written by Producer.Publish.
func DecodeEvent(value []byte) (BookingEvent, error) {
	var event BookingEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return BookingEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch event.Type {
	case EventBookingCreated, EventBookingCancelled, EventBookingDeleted:
	default:
		return BookingEvent{}, fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, event.Type)
	}
	if event.BookingID <= 0 {
		return BookingEvent{}, fmt.Errorf("%w: missing booking_id", ErrMalformedEvent)
	}

	return event, nil
}
