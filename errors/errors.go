package errors

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrInvalidHandshake     = fmt.Errorf("invalid handshake")
	ErrBusConnectionFailure = fmt.Errorf("bus connection failure")
	ErrBusConnectionLost    = fmt.Errorf("bus connection lost")
	ErrClientDisconnected   = fmt.Errorf("client disconnected")
	ErrClientGone           = fmt.Errorf("client gone")
	ErrPublishFailure       = fmt.Errorf("publish failure")
	ErrWorkerPanic          = fmt.Errorf("worker panic")
)

// IsNormalTermination reports whether err is an expected end of session
// rather than an application failure.
func IsNormalTermination(err error) bool {
	return err == nil ||
		errors.Is(err, ErrClientDisconnected) ||
		errors.Is(err, ErrClientGone)
}

// MapToGRPCError converts a relay error into the status returned to the caller.
// Normal terminations map to nil so the client just sees its stream end.
func MapToGRPCError(err error) error {
	if IsNormalTermination(err) {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrInvalidHandshake):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrBusConnectionFailure), errors.Is(err, ErrBusConnectionLost):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
