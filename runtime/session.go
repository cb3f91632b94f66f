package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/sink"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one active chat connection.
// It owns its outbound buffer and its two bus connections.
type Session struct {
	ID        domain.SessionID
	Identity  domain.Identity
	StartedAt time.Time

	sink       *sink.GrpcSink
	publisher  contract.Publisher
	subscriber contract.Subscriber

	mu    sync.Mutex
	state domain.SessionState
	cause error
	done  chan struct{}
}

func newSession(identity domain.Identity, bufferSize int) *Session {
	return &Session{
		ID:        domain.SessionID(uuid.NewString()),
		Identity:  identity,
		StartedAt: time.Now().UTC(),
		sink:      sink.NewGrpcSink(bufferSize),
		state:     domain.Handshaking,
		done:      make(chan struct{}),
	}
}

// Outbound is drained by the gRPC handler into the response stream.
func (s *Session) Outbound() <-chan domain.ChatMessage {
	return s.sink.Messages()
}

// CloseOutbound tells the session nobody reads the outbound buffer anymore.
func (s *Session) CloseOutbound() {
	s.sink.Close()
}

// Done is closed once the session reached Closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err reports why the session closed, nil while it is still running.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Info() domain.SessionInfo {
	return domain.SessionInfo{
		ID:        s.ID,
		Identity:  s.Identity,
		State:     s.State(),
		Buffered:  s.sink.Len(),
		Capacity:  s.sink.Cap(),
		StartedAt: s.StartedAt,
	}
}

func (s *Session) transition(next domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.CanTransitionTo(next) {
		return fmt.Errorf("session %s: illegal transition %s -> %s", s.ID, s.state, next)
	}
	s.state = next
	return nil
}

// close moves the session to Closed, whatever state it is in, exactly once.
func (s *Session) close(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == domain.Closed {
		return
	}
	s.state = domain.Closed
	s.cause = cause
	close(s.done)
}
