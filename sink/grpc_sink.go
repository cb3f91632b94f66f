package sink

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"sync"
)

// GrpcSink is the bounded outbound buffer of one session.
// The relay fills it, the gRPC handler drains it into the response stream.
type GrpcSink struct {
	messages chan domain.ChatMessage
	gone     chan struct{}
	once     sync.Once
}

func NewGrpcSink(bufferSize int) *GrpcSink {
	return &GrpcSink{
		messages: make(chan domain.ChatMessage, bufferSize),
		gone:     make(chan struct{}),
	}
}

// Consume blocks while the buffer is full, nothing is ever dropped.
// It fails with ErrClientGone once the reader has stopped.
func (s *GrpcSink) Consume(ctx context.Context, msg domain.ChatMessage) error {
	select {
	case <-s.gone:
		return errors.ErrClientGone
	default:
	}
	select {
	case s.messages <- msg:
		return nil
	case <-s.gone:
		return errors.ErrClientGone
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *GrpcSink) Messages() <-chan domain.ChatMessage {
	return s.messages
}

// Close is called by the reader when it stops draining.
func (s *GrpcSink) Close() {
	s.once.Do(func() { close(s.gone) })
}

func (s *GrpcSink) Gone() <-chan struct{} {
	return s.gone
}

func (s *GrpcSink) Len() int {
	return len(s.messages)
}

func (s *GrpcSink) Cap() int {
	return cap(s.messages)
}
