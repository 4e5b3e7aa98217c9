package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the redis-less fallback. A janitor goroutine sweeps
// expired conversations once per minute.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]memoryEntry
	stop  chan struct{}
	once  sync.Once
}

type memoryEntry struct {
	conv      Conversation
	expiresAt time.Time
}

// NewMemoryStore builds an in-memory store and starts its janitor.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	s := &MemoryStore{
		ttl:   ttl,
		items: make(map[string]memoryEntry),
		stop:  make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Close stops the janitor. Safe to call more than once.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(s.items, id)
		return nil, ErrNotFound
	}
	conv := entry.conv
	return &conv, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, conv *Conversation) error {
	conv.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[conv.ID] = memoryEntry{conv: *conv, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for id, entry := range s.items {
				if now.After(entry.expiresAt) {
					delete(s.items, id)
				}
			}
			s.mu.Unlock()
		}
	}
}
