package bookings_service_api

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/Domenick1991/roombooking/internal/domain"
	"github.com/Domenick1991/roombooking/internal/service/booking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) CreateBooking(ctx context.Context, input booking.CreateBookingInput, ownerID int64) (*booking.BookingView, error) {
	args := m.Called(ctx, input, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.BookingView), args.Error(1)
}

func (m *MockBookingUseCase) GetBookingByID(ctx context.Context, id int64) (*booking.BookingView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.BookingView), args.Error(1)
}

func (m *MockBookingUseCase) GetUserBookings(ctx context.Context, userID int64) ([]booking.BookingView, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]booking.BookingView), args.Error(1)
}

func (m *MockBookingUseCase) GetAllActiveBookings(ctx context.Context) ([]booking.BookingView, error) {
	args := m.Called(ctx)
	return args.Get(0).([]booking.BookingView), args.Error(1)
}

func (m *MockBookingUseCase) GetBookingsByDate(ctx context.Context, date time.Time) ([]booking.BookingView, error) {
	args := m.Called(ctx, date)
	return args.Get(0).([]booking.BookingView), args.Error(1)
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, id, userID int64) (*booking.BookingView, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.BookingView), args.Error(1)
}

func (m *MockBookingUseCase) DeleteBooking(ctx context.Context, id, userID int64) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

var viewStart = time.Date(2030, 1, 2, 10, 0, 0, 0, time.UTC)

func sampleView() *booking.BookingView {
	return &booking.BookingView{
		ID:           7,
		OwnerID:      2,
		OwnerName:    "Regular User",
		Username:     "user1",
		ResourceName: "Room A",
		Start:        viewStart,
		End:          viewStart.Add(time.Hour),
		Status:       "ACTIVE",
		CreatedAt:    viewStart.Add(-24 * time.Hour),
	}
}

// dial starts an in-memory gRPC server backed by svc.
func dial(t *testing.T, svc booking.BookingUseCase) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterBookingsServiceServer(srv, NewServer(svc))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func invoke(ctx context.Context, conn *grpc.ClientConn, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := conn.Invoke(ctx, FullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func asUser(id string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), UserIDMetadataKey, id)
}

func TestServer_CreateBooking(t *testing.T) {
	svc := &MockBookingUseCase{}
	conn := dial(t, svc)

	input := booking.CreateBookingInput{
		ResourceName: "Room A",
		Start:        viewStart,
		End:          viewStart.Add(time.Hour),
	}
	svc.On("CreateBooking", mock.Anything, input, int64(2)).Return(sampleView(), nil).Once()

	out, err := invoke(asUser("2"), conn, "CreateBooking", map[string]any{
		"resource_name": "Room A",
		"start":         "2030-01-02T10:00:00Z",
		"end":           "2030-01-02T11:00:00Z",
	})

	require.NoError(t, err)
	assert.Equal(t, float64(7), out.GetFields()["id"].GetNumberValue())
	assert.Equal(t, "ACTIVE", out.GetFields()["status"].GetStringValue())
	assert.Equal(t, "Regular User", out.GetFields()["owner_name"].GetStringValue())
	svc.AssertExpectations(t)
}

func TestServer_CreateBooking_InvalidRequests(t *testing.T) {
	testCases := []struct {
		name   string
		ctx    context.Context
		fields map[string]any
		code   codes.Code
	}{
		{
			name:   "missing identity",
			ctx:    context.Background(),
			fields: map[string]any{"resource_name": "Room A", "start": "2030-01-02T10:00:00Z", "end": "2030-01-02T11:00:00Z"},
			code:   codes.Unauthenticated,
		},
		{
			name:   "non numeric identity",
			ctx:    asUser("abc"),
			fields: map[string]any{"resource_name": "Room A", "start": "2030-01-02T10:00:00Z", "end": "2030-01-02T11:00:00Z"},
			code:   codes.Unauthenticated,
		},
		{
			name:   "blank resource",
			ctx:    asUser("2"),
			fields: map[string]any{"resource_name": "  ", "start": "2030-01-02T10:00:00Z", "end": "2030-01-02T11:00:00Z"},
			code:   codes.InvalidArgument,
		},
		{
			name:   "bad timestamp",
			ctx:    asUser("2"),
			fields: map[string]any{"resource_name": "Room A", "start": "tomorrow", "end": "2030-01-02T11:00:00Z"},
			code:   codes.InvalidArgument,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &MockBookingUseCase{}
			conn := dial(t, svc)

			_, err := invoke(tc.ctx, conn, "CreateBooking", tc.fields)

			assert.Equal(t, tc.code, status.Code(err))
			svc.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestServer_DomainErrorsMapToCodes(t *testing.T) {
	svc := &MockBookingUseCase{}
	conn := dial(t, svc)

	svc.On("CancelBooking", mock.Anything, int64(7), int64(1)).
		Return(nil, domain.Unauthorized("You can only cancel your own bookings")).Once()
	svc.On("GetBookingByID", mock.Anything, int64(8)).
		Return(nil, domain.NotFound("Booking not found")).Once()

	_, err := invoke(asUser("1"), conn, "CancelBooking", map[string]any{"id": 7})
	st := status.Convert(err)
	assert.Equal(t, codes.PermissionDenied, st.Code())
	assert.Equal(t, "You can only cancel your own bookings", st.Message())
	require.Len(t, st.Details(), 1)
	info, ok := st.Details()[0].(*errdetails.ErrorInfo)
	require.True(t, ok)
	assert.Equal(t, string(domain.KindUnauthorized), info.GetReason())

	_, err = invoke(context.Background(), conn, "GetBooking", map[string]any{"id": "8"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestServer_Listings(t *testing.T) {
	svc := &MockBookingUseCase{}
	conn := dial(t, svc)

	day := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)
	svc.On("GetAllActiveBookings", mock.Anything).Return([]booking.BookingView{*sampleView()}, nil).Once()
	svc.On("GetUserBookings", mock.Anything, int64(2)).Return([]booking.BookingView{}, nil).Once()
	svc.On("GetBookingsByDate", mock.Anything, day).Return([]booking.BookingView{*sampleView()}, nil).Once()

	out, err := invoke(context.Background(), conn, "ListActiveBookings", map[string]any{})
	require.NoError(t, err)
	assert.Len(t, out.GetFields()["bookings"].GetListValue().GetValues(), 1)

	out, err = invoke(context.Background(), conn, "ListUserBookings", map[string]any{"user_id": 2})
	require.NoError(t, err)
	assert.Empty(t, out.GetFields()["bookings"].GetListValue().GetValues())

	out, err = invoke(context.Background(), conn, "ListBookingsByDate", map[string]any{"date": "2030-01-02"})
	require.NoError(t, err)
	assert.Len(t, out.GetFields()["bookings"].GetListValue().GetValues(), 1)

	_, err = invoke(context.Background(), conn, "ListBookingsByDate", map[string]any{"date": "yesterday"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	svc.AssertExpectations(t)
}

func TestServer_DeleteBooking(t *testing.T) {
	svc := &MockBookingUseCase{}
	conn := dial(t, svc)

	svc.On("DeleteBooking", mock.Anything, int64(7), int64(1)).Return(nil).Once()

	out, err := invoke(asUser("1"), conn, "DeleteBooking", map[string]any{"id": 7})

	require.NoError(t, err)
	assert.Empty(t, out.GetFields())

	_, err = invoke(asUser("1"), conn, "DeleteBooking", map[string]any{"id": 1.5})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	svc.AssertExpectations(t)
}
