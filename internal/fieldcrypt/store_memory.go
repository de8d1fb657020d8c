package fieldcrypt

import (
	"context"
	"sync"

	id "lexgate/pkg/domain"
	"lexgate/pkg/platform/sentinel"
)

// InMemoryStore implements Store for unit tests and single-node development.
// Production deployments use PostgresStore.
type InMemoryStore struct {
	mu   sync.RWMutex
	keys map[id.FirmID]map[id.KeyID]storedKey
}

type storedKey struct {
	meta    KeyMetadata
	wrapped []byte
}

// NewInMemoryStore creates an empty in-memory key store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{keys: make(map[id.FirmID]map[id.KeyID]storedKey)}
}

func (s *InMemoryStore) Insert(_ context.Context, meta KeyMetadata, wrappedKey []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if meta.Status == KeyStatusActive {
		for _, stored := range s.keys[meta.FirmID] {
			if stored.meta.Purpose == meta.Purpose && stored.meta.Status == KeyStatusActive {
				return sentinel.ErrConflict
			}
		}
	}

	firmKeys := s.keys[meta.FirmID]
	if firmKeys == nil {
		firmKeys = make(map[id.KeyID]storedKey)
		s.keys[meta.FirmID] = firmKeys
	}
	firmKeys[meta.KeyID] = storedKey{meta: meta, wrapped: append([]byte(nil), wrappedKey...)}
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, firmID id.FirmID, keyID id.KeyID) (KeyMetadata, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.keys[firmID][keyID]
	if !ok {
		return KeyMetadata{}, nil, sentinel.ErrNotFound
	}
	return stored.meta, append([]byte(nil), stored.wrapped...), nil
}

func (s *InMemoryStore) Active(_ context.Context, firmID id.FirmID, purpose Purpose) (KeyMetadata, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, stored := range s.keys[firmID] {
		if stored.meta.Purpose == purpose && stored.meta.Status == KeyStatusActive {
			return stored.meta, append([]byte(nil), stored.wrapped...), nil
		}
	}
	return KeyMetadata{}, nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Rotate(_ context.Context, deprecated *KeyMetadata, successor KeyMetadata, wrappedKey []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deprecated != nil {
		stored, ok := s.keys[deprecated.FirmID][deprecated.KeyID]
		if !ok {
			return sentinel.ErrNotFound
		}
		stored.meta.Status = KeyStatusDeprecated
		s.keys[deprecated.FirmID][deprecated.KeyID] = stored
	}

	firmKeys := s.keys[successor.FirmID]
	if firmKeys == nil {
		firmKeys = make(map[id.KeyID]storedKey)
		s.keys[successor.FirmID] = firmKeys
	}
	firmKeys[successor.KeyID] = storedKey{meta: successor, wrapped: append([]byte(nil), wrappedKey...)}
	return nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, firmID id.FirmID, keyID id.KeyID, status KeyStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.keys[firmID][keyID]
	if !ok {
		return sentinel.ErrNotFound
	}
	stored.meta.Status = status
	s.keys[firmID][keyID] = stored
	return nil
}

func (s *InMemoryStore) ListByFirm(_ context.Context, firmID id.FirmID) ([]KeyMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []KeyMetadata
	for _, stored := range s.keys[firmID] {
		out = append(out, stored.meta)
	}
	return out, nil
}
