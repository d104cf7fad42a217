package memory

import (
	"context"
	"sync"

	id "kudose/pkg/domain"
	audit "kudose/pkg/platform/audit"
)

// InMemoryStore keeps audit events per principal. Used in dev mode and tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.PrincipalID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.PrincipalID][]audit.Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.PrincipalID] = append(s.events[event.PrincipalID], event)
	return nil
}

func (s *InMemoryStore) ListByPrincipal(_ context.Context, principalID id.PrincipalID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[principalID]...), nil
}

// Actions returns the recorded actions for a principal in order.
func (s *InMemoryStore) Actions(principalID id.PrincipalID) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.events[principalID]))
	for _, e := range s.events[principalID] {
		out = append(out, e.Action)
	}
	return out
}
