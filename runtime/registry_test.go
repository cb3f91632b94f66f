package runtime

import (
	"chat-relay/domain"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Register_One_Identity_One_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	session := newSession("alice", 4)

	// Given no session is registered
	req.Empty(registry.sessions)
	req.Empty(registry.identities)

	// When a session registers
	registry.Register(session)

	// Then
	req.Equal(1, registry.Count())
	req.Len(registry.identities, 1)
	req.Contains(registry.identities["alice"], session.ID)
	req.Equal(session, registry.sessions[session.ID])
}

func TestRegistry_Register_One_Identity_Multiple_Sessions(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	first := newSession("alice", 4)
	second := newSession("alice", 4)

	registry.Register(first)
	registry.Register(second)

	req.Equal(2, registry.Count())
	req.Len(registry.identities["alice"], 2)
	req.ElementsMatch([]domain.SessionID{first.ID, second.ID}, lo.Keys(registry.identities["alice"]))
	req.NotContains(registry.identities, domain.Identity("bob"))
}

func TestRegistry_Unregister_Drops_Empty_Identity(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	first := newSession("alice", 4)
	second := newSession("alice", 4)
	registry.Register(first)
	registry.Register(second)

	// When one session leaves, the identity is still known
	registry.Unregister(first)
	req.Equal(1, registry.Count())
	req.Len(registry.identities["alice"], 1)

	// When the last session leaves, nothing remains
	registry.Unregister(second)
	req.Zero(registry.Count())
	req.Empty(registry.identities)

	// Unregistering twice is harmless
	registry.Unregister(second)
	req.Zero(registry.Count())
}

func TestRegistry_Snapshot_OldestFirst(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	older := newSession("alice", 4)
	older.StartedAt = time.Now().Add(-time.Minute)
	newer := newSession("bob", 4)

	registry.Register(newer)
	registry.Register(older)

	snapshot := registry.Snapshot()
	req.Len(snapshot, 2)
	req.Equal(older.ID, snapshot[0].ID)
	req.Equal(newer.ID, snapshot[1].ID)
	req.Equal(4, snapshot[0].Capacity)
}
