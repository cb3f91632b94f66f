package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMapToGRPCError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"invalid handshake", fmt.Errorf("missing from: %w", ErrInvalidHandshake), codes.InvalidArgument},
		{"bus unreachable", fmt.Errorf("dial: %w", ErrBusConnectionFailure), codes.Unavailable},
		{"bus lost", fmt.Errorf("read: %w", ErrBusConnectionLost), codes.Unavailable},
		{"canceled", context.Canceled, codes.Canceled},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"panic", ErrWorkerPanic, codes.Internal},
		{"already a status", status.Error(codes.NotFound, "nope"), codes.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapToGRPCError(tt.err)
			require.Error(t, err)
			require.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestMapToGRPCError_NormalTermination(t *testing.T) {
	req := require.New(t)
	req.NoError(MapToGRPCError(nil))
	req.NoError(MapToGRPCError(fmt.Errorf("recv: %w", ErrClientDisconnected)))
	req.NoError(MapToGRPCError(ErrClientGone))
}
