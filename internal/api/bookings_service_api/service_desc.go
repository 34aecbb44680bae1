package bookings_service_api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "roombooking.v1.BookingsService"

// BookingsServiceServer is the server API for the bookings service. Messages
// are google.protobuf.Struct documents shaped like the REST bodies.
type BookingsServiceServer interface {
	CreateBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListUserBookings(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListActiveBookings(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListBookingsByDate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterBookingsServiceServer(s grpc.ServiceRegistrar, srv BookingsServiceServer) {
	s.RegisterService(&BookingsService_ServiceDesc, srv)
}

// FullMethod returns the gRPC path of method, e.g. for conn.Invoke.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type unaryMethod func(BookingsServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := FullMethod(method)
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(BookingsServiceServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(server, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var BookingsService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateBooking", Handler: unaryHandler("CreateBooking", BookingsServiceServer.CreateBooking)},
		{MethodName: "GetBooking", Handler: unaryHandler("GetBooking", BookingsServiceServer.GetBooking)},
		{MethodName: "ListUserBookings", Handler: unaryHandler("ListUserBookings", BookingsServiceServer.ListUserBookings)},
		{MethodName: "ListActiveBookings", Handler: unaryHandler("ListActiveBookings", BookingsServiceServer.ListActiveBookings)},
		{MethodName: "ListBookingsByDate", Handler: unaryHandler("ListBookingsByDate", BookingsServiceServer.ListBookingsByDate)},
		{MethodName: "CancelBooking", Handler: unaryHandler("CancelBooking", BookingsServiceServer.CancelBooking)},
		{MethodName: "DeleteBooking", Handler: unaryHandler("DeleteBooking", BookingsServiceServer.DeleteBooking)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "roombooking/v1/bookings.proto",
}
