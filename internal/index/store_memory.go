package index

import (
	"context"
	"sort"
	"sync"

	id "lexgate/pkg/domain"
	"lexgate/pkg/platform/sentinel"
)

// InMemoryStore backs unit tests and single-node deployments.
type InMemoryStore struct {
	mu          sync.RWMutex
	projections map[id.FirmID]map[id.ConversationID]Projection
}

// NewInMemoryStore creates an empty in-memory index store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{projections: make(map[id.FirmID]map[id.ConversationID]Projection)}
}

func (s *InMemoryStore) Upsert(_ context.Context, p Projection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	firm, ok := s.projections[p.FirmID]
	if !ok {
		firm = make(map[id.ConversationID]Projection)
		s.projections[p.FirmID] = firm
	}
	if cur, ok := firm[p.ConversationID]; ok && cur.Version > p.Version {
		return nil
	}
	firm[p.ConversationID] = p
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, firmID id.FirmID, convID id.ConversationID) (Projection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projections[firmID][convID]
	if !ok {
		return Projection{}, sentinel.ErrNotFound
	}
	return p, nil
}

func (s *InMemoryStore) Recent(_ context.Context, firmID id.FirmID, limit int) ([]Projection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	firm := s.projections[firmID]
	out := make([]Projection, 0, len(firm))
	for _, p := range firm {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) Remove(_ context.Context, firmID id.FirmID, convID id.ConversationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projections[firmID], convID)
	return nil
}
