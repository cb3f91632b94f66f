package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// OutboundRelay publishes every message sent by the client to its destination topic.
type OutboundRelay struct {
	log       *slog.Logger
	identity  domain.Identity
	source    contract.MessageSource
	publisher contract.Publisher
}

type received struct {
	msg domain.ChatMessage
	err error
}

func NewOutboundRelay(log *slog.Logger, identity domain.Identity,
	source contract.MessageSource, publisher contract.Publisher) *OutboundRelay {
	return &OutboundRelay{
		log:       log,
		identity:  identity,
		source:    source,
		publisher: publisher,
	}
}

// Run stops with ErrClientDisconnected when the request stream ends,
// with ErrBusConnectionLost when the publish connection dies,
// or with the context error. A message that fails to publish is only logged.
func (r *OutboundRelay) Run(ctx context.Context) error {
	pumpCtx, stopPump := context.WithCancel(ctx)
	defer stopPump()
	incoming := make(chan received)
	go r.pump(pumpCtx, incoming)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in := <-incoming:
			if in.err != nil {
				if stderrors.Is(in.err, io.EOF) {
					r.log.Info("Client closed its stream", "identity", r.identity)
					return errors.ErrClientDisconnected
				}
				r.log.Warn("Client disconnected", "identity", r.identity, "error", in.err)
				return fmt.Errorf("%w: %v", errors.ErrClientDisconnected, in.err)
			}

			if err := r.forward(ctx, in.msg); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if stderrors.Is(err, errors.ErrBusConnectionLost) {
					return err
				}
				r.log.Warn("Dropping message",
					"identity", r.identity,
					"to", in.msg.To,
					"error", err)
			}
		}
	}
}

// pump turns the blocking Recv into a channel so Run can be cancelled.
func (r *OutboundRelay) pump(ctx context.Context, out chan<- received) {
	for {
		msg, err := r.source.Recv()
		select {
		case out <- received{msg: msg, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (r *OutboundRelay) forward(ctx context.Context, msg domain.ChatMessage) error {
	if err := validate.Struct(msg); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPublishFailure, err)
	}
	if err := r.publisher.Publish(ctx, msg.To.Topic(), msg.Message); err != nil {
		return err
	}
	r.log.Debug("Published message", "identity", r.identity, "topic", msg.To.Topic())
	return nil
}
