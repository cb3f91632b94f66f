//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Publisher is a publish-only connection to the bus, owned by one session.
type Publisher interface {
	Publish(ctx context.Context, topic, payload string) error
	Close() error
}

// Subscriber is a subscribe-only connection to the bus, owned by one session.
// Next suspends until a payload arrives, the context is done or the connection is closed.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) error
	Unsubscribe(ctx context.Context, topic string) error
	Next(ctx context.Context) (string, error)
	Close() error
}

// BusGateway opens dedicated bus connections.
type BusGateway interface {
	OpenPublisher(ctx context.Context) (Publisher, error)
	OpenSubscriber(ctx context.Context) (Subscriber, error)
	Ping(ctx context.Context) error
	Close() error
}

// MessageSource is the client side of a chat stream.
// Recv returns io.EOF once the client has closed its half.
type MessageSource interface {
	Recv() (domain.ChatMessage, error)
}

// EventSink receives messages bound for a connected client.
type EventSink interface {
	Consume(ctx context.Context, msg domain.ChatMessage) error
}
