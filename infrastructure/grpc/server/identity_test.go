package server

import (
	"chat-relay/errors"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"
)

func TestIdentityFromContext(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		want    string
		wantErr bool
	}{
		{"no metadata", context.Background(), "", true},
		{"no from key", metadata.NewIncomingContext(context.Background(), metadata.Pairs("other", "x")), "", true},
		{"blank identity", metadata.NewIncomingContext(context.Background(), metadata.Pairs("from", "  ")), "", true},
		{"identity", metadata.NewIncomingContext(context.Background(), metadata.Pairs("from", "alice")), "alice", false},
		{"identity kept as sent", metadata.NewIncomingContext(context.Background(), metadata.Pairs("from", " bob")), " bob", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := IdentityFromContext(tt.ctx)
			if tt.wantErr {
				require.ErrorIs(t, err, errors.ErrInvalidHandshake)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, string(identity))
		})
	}
}
