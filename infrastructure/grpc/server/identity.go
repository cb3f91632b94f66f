package server

import (
	"chat-relay/domain"
	"chat-relay/errors"
	pb "chat-relay/proto/chat"
	"context"
	"fmt"

	"google.golang.org/grpc/metadata"
)

// IdentityFromContext reads the caller identity from the stream metadata.
func IdentityFromContext(ctx context.Context) (domain.Identity, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", fmt.Errorf("%w: metadata is missing", errors.ErrInvalidHandshake)
	}
	values := md.Get(pb.IdentityMetadataKey)
	if len(values) == 0 {
		return "", fmt.Errorf("%w: %q metadata is missing", errors.ErrInvalidHandshake, pb.IdentityMetadataKey)
	}
	identity := domain.Identity(values[0])
	if !identity.IsValid() {
		return "", fmt.Errorf("%w: %q metadata is blank", errors.ErrInvalidHandshake, pb.IdentityMetadataKey)
	}
	return identity, nil
}
