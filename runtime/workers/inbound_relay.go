package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
)

// InboundRelay forwards bus payloads of the session topic to the client.
type InboundRelay struct {
	log        *slog.Logger
	identity   domain.Identity
	subscriber contract.Subscriber
	sink       ClientSink
}

// ClientSink is the outbound buffer as seen by the relay.
type ClientSink interface {
	contract.EventSink
	Gone() <-chan struct{}
}

func NewInboundRelay(log *slog.Logger, identity domain.Identity,
	subscriber contract.Subscriber, sink ClientSink) *InboundRelay {
	return &InboundRelay{log: log, identity: identity, subscriber: subscriber, sink: sink}
}

// Run never returns while the subscription is healthy and the client reads.
// It stops with ErrClientGone, ErrBusConnectionLost or the context error.
func (r *InboundRelay) Run(ctx context.Context) error {
	// A reader that stopped must also release a pending bus read.
	relayCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-r.sink.Gone():
			cancel()
		case <-relayCtx.Done():
		}
	}()

	for {
		payload, err := r.subscriber.Next(relayCtx)
		if err != nil {
			return r.terminal(ctx, err)
		}
		r.log.Debug("Received message on topic", "identity", r.identity, "topic", r.identity.Topic())

		if err := r.sink.Consume(relayCtx, domain.NewDelivery(r.identity, payload)); err != nil {
			r.log.Warn("Failed to hand message to gRPC client", "identity", r.identity, "error", err)
			return r.terminal(ctx, err)
		}
	}
}

func (r *InboundRelay) terminal(ctx context.Context, err error) error {
	select {
	case <-r.sink.Gone():
		return errors.ErrClientGone
	default:
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if stderrors.Is(err, errors.ErrClientGone) || stderrors.Is(err, errors.ErrBusConnectionLost) {
		return err
	}
	return fmt.Errorf("%w: %v", errors.ErrBusConnectionLost, err)
}
