package session

import (
	"context"
	"sync"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

type memoryEntry struct {
	community models.Community
	expiresAt time.Time
}

// MemoryStore keeps records in process; used for local development and single-replica setups
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) GetCommunity(_ context.Context, userID string) (*models.Community, error) {
	s.mu.RLock()
	entry, ok := s.entries[userID]
	s.mu.RUnlock()

	if !ok || (!entry.expiresAt.IsZero() && s.now().After(entry.expiresAt)) {
		return nil, ErrNoCommunity
	}
	community := entry.community
	return &community, nil
}

func (s *MemoryStore) SetCommunity(_ context.Context, userID string, community *models.Community) error {
	entry := memoryEntry{community: *community}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	s.entries[userID] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) DeleteCommunity(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.entries, userID)
	s.mu.Unlock()
	return nil
}
