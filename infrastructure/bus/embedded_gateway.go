package bus

import (
	"chat-relay/errors"
	"fmt"
	"log/slog"

	"github.com/alicebob/miniredis/v2"
)

// EmbeddedGateway runs the Redis driver against an in-process miniredis
// server. Sessions are only relayed inside this process.
type EmbeddedGateway struct {
	*RedisGateway
	server *miniredis.Miniredis
}

func NewEmbeddedGateway(log *slog.Logger) (*EmbeddedGateway, error) {
	server := miniredis.NewMiniRedis()
	if err := server.Start(); err != nil {
		return nil, fmt.Errorf("%w: embedded bus: %v", errors.ErrBusConnectionFailure, err)
	}
	gateway, err := NewRedisGateway(log, "redis://"+server.Addr())
	if err != nil {
		server.Close()
		return nil, err
	}
	log.Debug("Embedded bus started", "address", server.Addr())
	return &EmbeddedGateway{RedisGateway: gateway, server: server}, nil
}

// SubscriberCount returns how many connections listen on topic.
func (g *EmbeddedGateway) SubscriberCount(topic string) int {
	return g.server.PubSubNumSub(topic)[topic]
}

// Shutdown stops the server and severs every open connection, as a bus outage would.
func (g *EmbeddedGateway) Shutdown() {
	g.server.Close()
}

func (g *EmbeddedGateway) Close() error {
	err := g.RedisGateway.Close()
	g.server.Close()
	return err
}
