package domain

import (
	"fmt"
	"time"
)

type SessionID string

// SessionState follows Handshaking -> Active -> Draining -> Closed.
// A failed handshake jumps straight to Closed.
type SessionState int

const (
	Handshaking SessionState = iota
	Active
	Draining
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Handshaking:
		return "HANDSHAKING"
	case Active:
		return "ACTIVE"
	case Draining:
		return "DRAINING"
	case Closed:
		return "CLOSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s SessionState) CanTransitionTo(next SessionState) bool {
	switch s {
	case Handshaking:
		return next == Active || next == Closed
	case Active:
		return next == Draining
	case Draining:
		return next == Closed
	default:
		return false
	}
}

// SessionInfo is a read-only snapshot of a live session.
type SessionInfo struct {
	ID        SessionID
	Identity  Identity
	State     SessionState
	Buffered  int
	Capacity  int
	StartedAt time.Time
}
