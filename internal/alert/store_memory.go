package alert

import (
	"context"
	"sync"
	"time"

	id "lexgate/pkg/domain"
	"lexgate/pkg/platform/sentinel"
)

// InMemoryStore backs unit tests and local development.
type InMemoryStore struct {
	mu     sync.RWMutex
	alerts map[id.FirmID]map[id.AlertID]Alert
	order  map[id.FirmID][]id.AlertID
}

// NewInMemoryStore creates an empty in-memory alert store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		alerts: make(map[id.FirmID]map[id.AlertID]Alert),
		order:  make(map[id.FirmID][]id.AlertID),
	}
}

func (s *InMemoryStore) Insert(_ context.Context, a Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	firm, ok := s.alerts[a.FirmID]
	if !ok {
		firm = make(map[id.AlertID]Alert)
		s.alerts[a.FirmID] = firm
	}
	if _, exists := firm[a.AlertID]; exists {
		return sentinel.ErrConflict
	}
	firm[a.AlertID] = a
	s.order[a.FirmID] = append(s.order[a.FirmID], a.AlertID)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, firmID id.FirmID, alertID id.AlertID) (Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[firmID][alertID]
	if !ok {
		return Alert{}, sentinel.ErrNotFound
	}
	return a, nil
}

func (s *InMemoryStore) List(_ context.Context, firmID id.FirmID, f Filter) ([]Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order := s.order[firmID]
	out := make([]Alert, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		a := s.alerts[firmID][order[i]]
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, a)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, firmID id.FirmID, alertID id.AlertID, status Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[firmID][alertID]
	if !ok {
		return sentinel.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = at
	s.alerts[firmID][alertID] = a
	return nil
}
