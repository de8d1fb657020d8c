package conversation

import (
	"context"
	"sort"
	"sync"

	id "lexgate/pkg/domain"
	"lexgate/pkg/platform/sentinel"
)

// InMemoryStore backs unit tests and local development. Records are copied
// on the way in and out so callers never share message slices with the
// store.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.FirmID]map[id.ConversationID]Record
}

// NewInMemoryStore creates an empty in-memory conversation store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.FirmID]map[id.ConversationID]Record)}
}

func copyRecord(rec Record) Record {
	out := rec
	out.Messages = make([]Message, len(rec.Messages))
	copy(out.Messages, rec.Messages)
	if rec.ClientIdentity != nil {
		ident := *rec.ClientIdentity
		out.ClientIdentity = &ident
	}
	return out
}

func (s *InMemoryStore) Insert(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	firm, ok := s.records[rec.FirmID]
	if !ok {
		firm = make(map[id.ConversationID]Record)
		s.records[rec.FirmID] = firm
	}
	if _, exists := firm[rec.ConversationID]; exists {
		return sentinel.ErrConflict
	}
	firm[rec.ConversationID] = copyRecord(rec)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, firmID id.FirmID, convID id.ConversationID) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[firmID][convID]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	return copyRecord(rec), nil
}

func (s *InMemoryStore) Update(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records[rec.FirmID][rec.ConversationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if cur.Version != rec.Version-1 {
		return sentinel.ErrConflict
	}
	s.records[rec.FirmID][rec.ConversationID] = copyRecord(rec)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, firmID id.FirmID, convID id.ConversationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[firmID][convID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records[firmID], convID)
	return nil
}

func (s *InMemoryStore) ListByFirm(_ context.Context, firmID id.FirmID, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	firm := s.records[firmID]
	out := make([]Record, 0, len(firm))
	for _, rec := range firm {
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
