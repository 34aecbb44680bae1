package bookings_service_api

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/roombooking/internal/apierr"
	"github.com/Domenick1991/roombooking/internal/service/booking"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// UserIDMetadataKey carries the caller identity on mutating calls.
const UserIDMetadataKey = "user-id"

// Server implements BookingsServiceServer on top of the booking use cases.
type Server struct {
	bookings booking.BookingUseCase
}

func NewServer(bookings booking.BookingUseCase) *Server {
	return &Server{bookings: bookings}
}

func (s *Server) CreateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	resource := strings.TrimSpace(stringField(req, "resource_name"))
	if resource == "" {
		return nil, status.Error(codes.InvalidArgument, "resource_name is required")
	}
	start, err := timeField(req, "start")
	if err != nil {
		return nil, err
	}
	end, err := timeField(req, "end")
	if err != nil {
		return nil, err
	}

	created, err := s.bookings.CreateBooking(ctx, booking.CreateBookingInput{
		ResourceName: resource,
		Start:        start,
		End:          end,
	}, userID)
	if err != nil {
		return nil, apierr.Err(err)
	}
	return toStruct(created)
}

func (s *Server) GetBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := idField(req, "id")
	if err != nil {
		return nil, err
	}

	view, err := s.bookings.GetBookingByID(ctx, id)
	if err != nil {
		return nil, apierr.Err(err)
	}
	return toStruct(view)
}

func (s *Server) ListUserBookings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := idField(req, "user_id")
	if err != nil {
		return nil, err
	}

	views, err := s.bookings.GetUserBookings(ctx, userID)
	if err != nil {
		return nil, apierr.Err(err)
	}
	return toListStruct(views)
}

func (s *Server) ListActiveBookings(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	views, err := s.bookings.GetAllActiveBookings(ctx)
	if err != nil {
		return nil, apierr.Err(err)
	}
	return toListStruct(views)
}

func (s *Server) ListBookingsByDate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	day, err := booking.ParseDay(stringField(req, "date"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "date must be YYYY-MM-DD or RFC 3339")
	}

	views, err := s.bookings.GetBookingsByDate(ctx, day)
	if err != nil {
		return nil, apierr.Err(err)
	}
	return toListStruct(views)
}

func (s *Server) CancelBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := idField(req, "id")
	if err != nil {
		return nil, err
	}

	view, err := s.bookings.CancelBooking(ctx, id, userID)
	if err != nil {
		return nil, apierr.Err(err)
	}
	return toStruct(view)
}

func (s *Server) DeleteBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := idField(req, "id")
	if err != nil {
		return nil, err
	}

	if err := s.bookings.DeleteBooking(ctx, id, userID); err != nil {
		return nil, apierr.Err(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}

func userIDFromContext(ctx context.Context) (int64, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return 0, status.Error(codes.Unauthenticated, "missing user-id metadata")
	}
	values := md.Get(UserIDMetadataKey)
	if len(values) == 0 {
		return 0, status.Error(codes.Unauthenticated, "missing user-id metadata")
	}
	id, err := strconv.ParseInt(values[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, status.Error(codes.Unauthenticated, "invalid user-id metadata")
	}
	return id, nil
}

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

func timeField(req *structpb.Struct, name string) (time.Time, error) {
	raw := stringField(req, name)
	if raw == "" {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "%s must be an RFC 3339 timestamp", name)
	}
	return t, nil
}

// idField accepts a positive integer given either as a number or a decimal string.
func idField(req *structpb.Struct, name string) (int64, error) {
	value, ok := req.GetFields()[name]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}

	switch kind := value.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n >= 1 && n < math.MaxInt64 && n == math.Trunc(n) {
			return int64(n), nil
		}
	case *structpb.Value_StringValue:
		if id, err := strconv.ParseInt(kind.StringValue, 10, 64); err == nil && id > 0 {
			return id, nil
		}
	}
	return 0, status.Errorf(codes.InvalidArgument, "%s must be a positive integer", name)
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, apierr.UnexpectedMessage)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Error(codes.Internal, apierr.UnexpectedMessage)
	}
	return out, nil
}

func toListStruct(views []booking.BookingView) (*structpb.Struct, error) {
	return toStruct(map[string]any{"bookings": views})
}

var _ BookingsServiceServer = (*Server)(nil)
