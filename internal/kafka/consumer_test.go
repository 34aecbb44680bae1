package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReader struct {
	mock.Mock
}

func (m *MockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	args := m.Called(ctx)
	return args.Get(0).(kafka.Message), args.Error(1)
}

func (m *MockReader) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) Handle(ctx context.Context, event BookingEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newTestConsumer(reader messageReader) *Consumer {
	return &Consumer{log: slog.New(slog.NewTextHandler(io.Discard, nil)), reader: reader}
}

const createdValue = `{"id":"e-1","type":"booking_created","booking_id":7,"owner_id":2,"actor_id":2,
	"resource_name":"Room A","start":"2030-01-02T10:00:00Z","end":"2030-01-02T11:00:00Z",
	"status":"ACTIVE","occurred_at":"2030-01-02T09:00:00Z"}`

func TestDecodeEvent(t *testing.T) {
	event, err := DecodeEvent([]byte(createdValue))

	require.NoError(t, err)
	assert.Equal(t, "e-1", event.ID)
	assert.Equal(t, EventBookingCreated, event.Type)
	assert.Equal(t, int64(7), event.BookingID)
	assert.Equal(t, "Room A", event.ResourceName)
	require.NotNil(t, event.Start)
	assert.Equal(t, time.Date(2030, 1, 2, 10, 0, 0, 0, time.UTC), event.Start.UTC())
}

func TestDecodeEvent_Malformed(t *testing.T) {
	testCases := []struct {
		name  string
		value string
	}{
		{"not json", `not json`},
		{"unknown type", `{"id":"e-1","type":"booking_moved","booking_id":7}`},
		{"missing type", `{"id":"e-1","booking_id":7}`},
		{"missing booking id", `{"id":"e-1","type":"booking_deleted","actor_id":1}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(tc.value))
			assert.ErrorIs(t, err, ErrMalformedEvent)
		})
	}
}

func TestConsumer_ConsumeDecodesAndSkipsGarbage(t *testing.T) {
	reader := &MockReader{}
	handler := &MockHandler{}
	consumer := newTestConsumer(reader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader.On("ReadMessage", ctx).Return(kafka.Message{Offset: 1, Value: []byte("garbage")}, nil).Once()
	reader.On("ReadMessage", ctx).Return(kafka.Message{Offset: 2, Value: []byte(createdValue)}, nil).Once()
	reader.On("ReadMessage", ctx).Return(kafka.Message{}, context.Canceled).Once()
	handler.On("Handle", ctx, mock.MatchedBy(func(e BookingEvent) bool {
		return e.ID == "e-1" && e.BookingID == 7
	})).Return(nil).Once()

	err := consumer.Consume(ctx, handler.Handle)

	assert.ErrorIs(t, err, context.Canceled)
	reader.AssertExpectations(t)
	handler.AssertExpectations(t)
}

func TestConsumer_ConsumeStopsOnHandlerError(t *testing.T) {
	reader := &MockReader{}
	handler := &MockHandler{}
	consumer := newTestConsumer(reader)

	ctx := context.Background()
	boom := errors.New("journal unavailable")

	reader.On("ReadMessage", ctx).Return(kafka.Message{Value: []byte(createdValue)}, nil).Once()
	handler.On("Handle", ctx, mock.AnythingOfType("kafka.BookingEvent")).Return(boom).Once()

	err := consumer.Consume(ctx, handler.Handle)

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "e-1")
	reader.AssertNumberOfCalls(t, "ReadMessage", 1)
}

func TestConsumer_CloseNil(t *testing.T) {
	var consumer *Consumer
	assert.NoError(t, consumer.Close())

	reader := &MockReader{}
	reader.On("Close").Return(nil).Once()
	assert.NoError(t, newTestConsumer(reader).Close())
	reader.AssertExpectations(t)
}
