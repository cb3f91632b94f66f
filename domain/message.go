// Package domain contains core concepts of the chat relay.
// This file defines chat messages and the identities they are addressed to.
// No runtime, network, or bus logic should be added here.
package domain

import (
	"fmt"
	"strings"
)

const welcomeFormat = "You are connected with id: %s"

// Identity names both a client and its private bus topic.
type Identity string

func (i Identity) Topic() string {
	return string(i)
}

// IsValid rejects empty and blank identities.
func (i Identity) IsValid() bool {
	return strings.TrimSpace(string(i)) != ""
}

// ChatMessage is the unit exchanged on the chat stream.
// On the way out, To is the destination topic.
// On the way in, To is always the identity of the receiving session.
type ChatMessage struct {
	To      Identity `validate:"required"`
	Message string
}

// NewWelcomeMessage builds the first message a session ever receives.
func NewWelcomeMessage(identity Identity) ChatMessage {
	return ChatMessage{
		To:      identity,
		Message: fmt.Sprintf(welcomeFormat, identity),
	}
}

// NewDelivery wraps a bus payload for the session owning receiver.
// The sender is not known on the bus, the receiver identity is stamped instead.
func NewDelivery(receiver Identity, payload string) ChatMessage {
	return ChatMessage{To: receiver, Message: payload}
}
