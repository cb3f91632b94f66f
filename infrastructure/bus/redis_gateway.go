package bus

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const interruptTimeout = time.Second

// RedisGateway hands out dedicated Redis connections.
// Every publisher and every subscriber gets its own single-connection client,
// so sessions never wait on a shared pool.
type RedisGateway struct {
	opts   *redis.Options
	client *redis.Client
	log    *slog.Logger
}

func NewRedisGateway(log *slog.Logger, url string) (*RedisGateway, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url %q: %w", url, err)
	}
	return &RedisGateway{opts: opts, client: redis.NewClient(opts), log: log}, nil
}

func (g *RedisGateway) dedicatedClient() *redis.Client {
	opts := *g.opts
	opts.PoolSize = 1
	opts.MinIdleConns = 0
	opts.MaxIdleConns = 1
	return redis.NewClient(&opts)
}

func (g *RedisGateway) OpenPublisher(ctx context.Context) (contract.Publisher, error) {
	client := g.dedicatedClient()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: publish connection: %v", errors.ErrBusConnectionFailure, err)
	}
	return &redisPublisher{client: client, log: g.log}, nil
}

// OpenSubscriber dials eagerly so an unreachable bus fails the handshake.
func (g *RedisGateway) OpenSubscriber(ctx context.Context) (contract.Subscriber, error) {
	client := g.dedicatedClient()
	pubsub := client.Subscribe(ctx)
	if err := pubsub.Ping(ctx); err != nil {
		_ = pubsub.Close()
		_ = client.Close()
		return nil, fmt.Errorf("%w: subscribe connection: %v", errors.ErrBusConnectionFailure, err)
	}
	return &redisSubscriber{client: client, pubsub: pubsub, closed: make(chan struct{})}, nil
}

// Ping checks the bus is reachable.
func (g *RedisGateway) Ping(ctx context.Context) error {
	if err := g.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrBusConnectionFailure, err)
	}
	return nil
}

func (g *RedisGateway) Close() error {
	return g.client.Close()
}

type redisPublisher struct {
	client *redis.Client
	log    *slog.Logger
}

// Publish does not wait for any subscriber, zero receivers is not an error.
func (p *redisPublisher) Publish(ctx context.Context, topic, payload string) error {
	receivers, err := p.client.Publish(ctx, topic, payload).Result()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return classify(err, errors.ErrPublishFailure)
	}
	p.log.Debug("Published on bus", "topic", topic, "receivers", receivers)
	return nil
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}

type redisSubscriber struct {
	client    *redis.Client
	pubsub    *redis.PubSub
	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// Subscribe returns once the bus has confirmed the subscription,
// so a publish issued afterwards is guaranteed to be delivered.
func (s *redisSubscriber) Subscribe(ctx context.Context, topic string) error {
	if err := s.pubsub.Subscribe(ctx, topic); err != nil {
		return fmt.Errorf("%w: subscribe %s: %v", errors.ErrBusConnectionFailure, topic, err)
	}
	for {
		reply, err := s.pubsub.Receive(ctx)
		if err != nil {
			return fmt.Errorf("%w: subscribe %s: %v", errors.ErrBusConnectionFailure, topic, err)
		}
		if sub, ok := reply.(*redis.Subscription); ok && sub.Kind == "subscribe" && sub.Channel == topic {
			return nil
		}
	}
}

// Unsubscribe sends UNSUBSCRIBE on the open connection. A cancelled Next has
// usually unsubscribed every topic already, sending it again is harmless.
// Once the subscriber is closed the server has dropped the subscription
// with the connection, and Unsubscribe does nothing.
func (s *redisSubscriber) Unsubscribe(ctx context.Context, topic string) error {
	if s.isClosed() {
		return nil
	}
	if err := s.pubsub.Unsubscribe(ctx, topic); err != nil {
		if s.isClosed() || stderrors.Is(err, redis.ErrClosed) {
			return nil
		}
		return classify(err, errors.ErrBusConnectionLost)
	}
	return nil
}

// Next blocks on the PubSub connection. Cancelling ctx unsubscribes every
// topic: the server confirmation releases the pending read and the
// connection stays open. A connection that cannot do it in time is closed.
func (s *redisSubscriber) Next(ctx context.Context) (string, error) {
	returned := make(chan struct{})
	defer close(returned)
	stop := context.AfterFunc(ctx, func() { s.interrupt(returned) })
	defer stop()

	for {
		reply, err := s.pubsub.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("%w: %v", errors.ErrBusConnectionLost, err)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if msg, ok := reply.(*redis.Message); ok {
			return msg.Payload, nil
		}
	}
}

func (s *redisSubscriber) interrupt(returned <-chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), interruptTimeout)
	defer cancel()
	if err := s.pubsub.Unsubscribe(ctx); err != nil {
		_ = s.Close()
		return
	}
	select {
	case <-returned:
	case <-ctx.Done():
		_ = s.Close()
	}
}

func (s *redisSubscriber) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.closeErr = stderrors.Join(s.pubsub.Close(), s.client.Close())
	})
	return s.closeErr
}

func (s *redisSubscriber) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// classify tells a dead connection apart from a rejected command.
func classify(err error, fallback error) error {
	var netErr net.Error
	switch {
	case stderrors.Is(err, redis.ErrClosed),
		stderrors.Is(err, io.EOF),
		stderrors.Is(err, io.ErrUnexpectedEOF),
		stderrors.As(err, &netErr):
		return fmt.Errorf("%w: %v", errors.ErrBusConnectionLost, err)
	default:
		return fmt.Errorf("%w: %v", fallback, err)
	}
}
