package session

import (
	"context"
	"sync"
	"time"
)

// entry represents a stored session with expiration
type entry struct {
	data      Data
	expiresAt time.Time
}

// MemoryStore implements Store using an in-memory map
// This is suitable for single-instance deployments and testing
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[string]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemoryStore creates a new in-memory session store
// It starts a background goroutine to clean up expired sessions
func NewMemoryStore() *MemoryStore {
	store := &MemoryStore{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Load returns a copy of the session data
func (s *MemoryStore) Load(ctx context.Context, id string) (*Data, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[id]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, ErrNotFound
	}

	data := e.data
	if e.data.User != nil {
		u := *e.data.User
		data.User = &u
	}
	return &data, nil
}

// Save stores a copy of data until ttl elapses
func (s *MemoryStore) Save(ctx context.Context, id string, data *Data, ttl time.Duration) error {
	stored := Data{}
	if data != nil && data.User != nil {
		u := *data.User
		stored.User = &u
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = entry{data: stored, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Delete removes a session
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Close stops the cleanup goroutine and releases resources
// Safe to call multiple times
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired sessions
func (s *MemoryStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired sessions from the store
func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}

// Size returns the number of sessions in the store (for testing/monitoring)
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
