package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"time"
)

const releaseTimeout = 5 * time.Second

// SessionManager performs the handshake of new chat streams,
// runs their relays and releases their bus resources.
type SessionManager struct {
	log        *slog.Logger
	gateway    contract.BusGateway
	registry   *Registry
	bufferSize int
}

func NewSessionManager(log *slog.Logger, gateway contract.BusGateway,
	registry *Registry, bufferSize int) *SessionManager {
	return &SessionManager{log: log, gateway: gateway, registry: registry, bufferSize: bufferSize}
}

// Open runs the handshake. On success the session is Active, subscribed to
// its identity topic, and the welcome message already sits in its buffer.
// On failure nothing is left allocated on the bus.
func (m *SessionManager) Open(ctx context.Context, identity domain.Identity) (*Session, error) {
	session := newSession(identity, m.bufferSize)
	if !identity.IsValid() {
		err := fmt.Errorf("%w: missing identity", errors.ErrInvalidHandshake)
		session.close(err)
		return nil, err
	}

	publisher, err := m.gateway.OpenPublisher(ctx)
	if err != nil {
		session.close(err)
		return nil, err
	}
	subscriber, err := m.gateway.OpenSubscriber(ctx)
	if err != nil {
		m.closeQuietly("publisher", identity, publisher)
		session.close(err)
		return nil, err
	}
	session.publisher, session.subscriber = publisher, subscriber

	if err := subscriber.Subscribe(ctx, identity.Topic()); err != nil {
		m.closeQuietly("subscriber", identity, subscriber)
		m.closeQuietly("publisher", identity, publisher)
		session.close(err)
		return nil, err
	}

	if err := session.sink.Consume(ctx, domain.NewWelcomeMessage(identity)); err != nil {
		m.release(ctx, session, err)
		return nil, err
	}
	m.log.Debug("Sent on-connect message", "identity", identity)

	if err := session.transition(domain.Active); err != nil {
		m.release(ctx, session, err)
		return nil, err
	}
	m.registry.Register(session)
	m.log.Info("User connected", "identity", identity, "session_id", session.ID)
	return session, nil
}

// Run relays messages in both directions until one direction stops,
// then tears the session down. It always leaves the session Closed.
func (m *SessionManager) Run(ctx context.Context, session *Session, source contract.MessageSource) error {
	inbound := workers.NewInboundRelay(m.log, session.Identity, session.subscriber, session.sink)
	outbound := workers.NewOutboundRelay(m.log, session.Identity, source, session.publisher)

	cause := workers.NewRelayGroup(m.log).Add(inbound, outbound).Run(ctx)
	m.release(ctx, session, cause)

	if errors.IsNormalTermination(cause) {
		m.log.Info("Session closed", "identity", session.Identity, "session_id", session.ID, "reason", cause)
	} else {
		m.log.Warn("Session aborted", "identity", session.Identity, "session_id", session.ID, "error", cause)
	}
	return cause
}

// ActiveSessions lists the sessions currently registered.
func (m *SessionManager) ActiveSessions() []domain.SessionInfo {
	return m.registry.Snapshot()
}

// release moves the session through Draining to Closed.
// The topic is unsubscribed before the connections are closed.
func (m *SessionManager) release(ctx context.Context, session *Session, cause error) {
	if err := session.transition(domain.Draining); err != nil {
		m.log.Debug("Releasing session outside of Active", "session_id", session.ID, "error", err)
	}

	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if err := session.subscriber.Unsubscribe(releaseCtx, session.Identity.Topic()); err != nil {
		m.log.Warn("Failed to unsubscribe", "identity", session.Identity, "topic", session.Identity.Topic(), "error", err)
	}
	m.closeQuietly("subscriber", session.Identity, session.subscriber)
	m.closeQuietly("publisher", session.Identity, session.publisher)

	m.registry.Unregister(session)
	session.close(cause)
}

func (m *SessionManager) closeQuietly(name string, identity domain.Identity, c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		m.log.Debug("Failed to close bus connection", "connection", name, "identity", identity, "error", err)
	}
}
