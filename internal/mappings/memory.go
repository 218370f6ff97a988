package mappings

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a bounded in-process mapping store for single-node
// deployments and tests. Entries expire lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	owner     string
	mapping   map[string]string
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, mapping map[string]string) (string, error) {
	token := uuid.NewString()
	copied := make(map[string]string, len(mapping))
	for k, v := range mapping {
		copied[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	s.entries[token] = memoryEntry{
		owner:     sessionID,
		mapping:   copied,
		expiresAt: s.now().Add(s.ttl),
	}
	return token, nil
}

func (s *MemoryStore) Redeem(_ context.Context, sessionID, token string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.entries, token)
		return nil, ErrNotFound
	}
	if entry.owner != sessionID {
		return nil, ErrNotOwner
	}

	copied := make(map[string]string, len(entry.mapping))
	for k, v := range entry.mapping {
		copied[k] = v
	}
	return copied, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return nil
	}
	if entry.owner != sessionID {
		return ErrNotOwner
	}
	delete(s.entries, token)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// prune drops expired entries; called with the lock held.
func (s *MemoryStore) prune() {
	now := s.now()
	for token, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, token)
		}
	}
}
