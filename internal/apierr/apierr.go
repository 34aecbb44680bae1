// Package apierr translates booking failures into gRPC and HTTP statuses.
package apierr

import (
	"errors"

	"github.com/Domenick1991/roombooking/internal/domain"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	errorDomain = "roombooking"

	UnexpectedMessage = "An unexpected error occurred"
)

// Code returns the gRPC code for err. Errors that already carry a gRPC
// status keep their code.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}

	kind, ok := domain.KindOf(err)
	if ok {
		switch kind {
		case domain.KindNotFound:
			return codes.NotFound
		case domain.KindBusinessRule:
			return codes.FailedPrecondition
		case domain.KindUnauthorized:
			return codes.PermissionDenied
		}
	}

	if st, ok := status.FromError(err); ok {
		return st.Code()
	}
	return codes.Internal
}

func HTTPStatus(err error) int {
	return runtime.HTTPStatusFromCode(Code(err))
}

// Message returns the client-facing text of err. Unclassified failures are
// never echoed back.
func Message(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Message
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown && st.Code() != codes.Internal {
		return st.Message()
	}
	return UnexpectedMessage
}

// Status converts err into a gRPC status. Classified failures carry an
// ErrorInfo detail whose Reason is the error kind.
func Status(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}

	kind, classified := domain.KindOf(err)
	if !classified {
		if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
			return st
		}
		return status.New(codes.Internal, UnexpectedMessage)
	}

	st := status.New(Code(err), Message(err))
	detailed, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason: string(kind),
		Domain: errorDomain,
	})
	if detailErr != nil {
		return st
	}
	return detailed
}

// Err is Status(err).Err().
func Err(err error) error {
	if err == nil {
		return nil
	}
	return Status(err).Err()
}
