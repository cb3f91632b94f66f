package runtime

import (
	"chat-relay/domain"
	"sort"
	"sync"

	"github.com/samber/lo"
)

type Set map[domain.SessionID]struct{}

// Registry indexes the live sessions of this process.
// Several sessions may share one identity, they all listen on the same topic.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[domain.SessionID]*Session
	identities map[domain.Identity]Set
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:   make(map[domain.SessionID]*Session),
		identities: make(map[domain.Identity]Set),
	}
}

func (r *Registry) Register(session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = session
	if _, ok := r.identities[session.Identity]; !ok {
		r.identities[session.Identity] = make(Set)
	}
	r.identities[session.Identity][session.ID] = struct{}{}
}

// Unregister removes the session and drops the identity once nobody uses it.
func (r *Registry) Unregister(session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, session.ID)
	if members, ok := r.identities[session.Identity]; ok {
		delete(members, session.ID)
		if len(members) == 0 {
			delete(r.identities, session.Identity)
		}
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot lists the live sessions, oldest first.
func (r *Registry) Snapshot() []domain.SessionInfo {
	r.mu.RLock()
	sessions := lo.Values(r.sessions)
	r.mu.RUnlock()

	infos := lo.Map(sessions, func(s *Session, _ int) domain.SessionInfo {
		return s.Info()
	})
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].StartedAt.Before(infos[j].StartedAt)
	})
	return infos
}
