package audit

import (
	"context"
	"sync"

	id "lexgate/pkg/domain"
	"lexgate/pkg/platform/sentinel"
)

// InMemoryStore keeps each firm's chain as an append-order slice plus an ID
// index. Used by unit tests and local development.
type InMemoryStore struct {
	mu     sync.RWMutex
	chains map[id.FirmID][]Entry
	byID   map[id.FirmID]map[id.AuditID]int
}

// NewInMemoryStore creates an empty in-memory audit store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		chains: make(map[id.FirmID][]Entry),
		byID:   make(map[id.FirmID]map[id.AuditID]int),
	}
}

func (s *InMemoryStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[e.FirmID]
	if !ok {
		idx = make(map[id.AuditID]int)
		s.byID[e.FirmID] = idx
	}
	if _, exists := idx[e.AuditID]; exists {
		return sentinel.ErrConflict
	}

	idx[e.AuditID] = len(s.chains[e.FirmID])
	s.chains[e.FirmID] = append(s.chains[e.FirmID], e)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, firmID id.FirmID, auditID id.AuditID) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.byID[firmID][auditID]
	if !ok {
		return Entry{}, sentinel.ErrNotFound
	}
	return s.chains[firmID][pos], nil
}

func (s *InMemoryStore) Tail(_ context.Context, firmID id.FirmID) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.chains[firmID]
	if len(chain) == 0 {
		return Entry{}, sentinel.ErrNotFound
	}
	return chain[len(chain)-1], nil
}

func (s *InMemoryStore) Successor(_ context.Context, firmID id.FirmID, auditID id.AuditID) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.byID[firmID][auditID]
	if !ok || pos+1 >= len(s.chains[firmID]) {
		return Entry{}, sentinel.ErrNotFound
	}
	return s.chains[firmID][pos+1], nil
}

func (s *InMemoryStore) List(_ context.Context, firmID id.FirmID, f Filter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.chains[firmID]
	out := make([]Entry, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		e := chain[i]
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if !f.UserID.IsNil() && e.UserID != f.UserID {
			continue
		}
		if !f.From.IsZero() && e.Timestamp.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && e.Timestamp.After(f.To) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) Chain(_ context.Context, firmID id.FirmID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.chains[firmID]
	out := make([]Entry, len(chain))
	copy(out, chain)
	return out, nil
}
