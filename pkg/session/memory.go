package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps session records in process memory.
// Records do not survive a restart; use SQLStore for that.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryRecord
	closed   bool
	done     chan struct{}
	now      func() time.Time
}

type memoryRecord struct {
	data      []byte
	expiresAt time.Time
}

func (r memoryRecord) expired(now time.Time) bool {
	return !now.Before(r.expiresAt)
}

// MemoryStoreOption configures MemoryStore behavior.
type MemoryStoreOption func(*memoryStoreConfig)

type memoryStoreConfig struct {
	cleanupInterval time.Duration
}

// WithCleanupInterval sets how often expired records are swept.
// Default: 1 minute.
func WithCleanupInterval(d time.Duration) MemoryStoreOption {
	return func(c *memoryStoreConfig) {
		if d > 0 {
			c.cleanupInterval = d
		}
	}
}

// NewMemoryStore creates an in-memory store. Close stops its sweeper.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	cfg := &memoryStoreConfig{cleanupInterval: time.Minute}
	for _, opt := range opts {
		opt(cfg)
	}

	store := &MemoryStore{
		sessions: make(map[string]memoryRecord),
		done:     make(chan struct{}),
		now:      time.Now,
	}
	go store.cleanupLoop(cfg.cleanupInterval)
	return store
}

func (m *MemoryStore) Save(_ context.Context, sessionID string, data []byte, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.sessions[sessionID] = memoryRecord{data: cloneBytes(data), expiresAt: expiresAt}
	return nil
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	rec, ok := m.sessions[sessionID]
	if !ok || rec.expired(m.now()) {
		return nil, nil
	}
	return cloneBytes(rec.data), nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryStore) Touch(_ context.Context, sessionID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	if rec, ok := m.sessions[sessionID]; ok {
		rec.expiresAt = expiresAt
		m.sessions[sessionID] = rec
	}
	return nil
}

func (m *MemoryStore) SaveAll(_ context.Context, sessions map[string]Data) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	for id, sd := range sessions {
		m.sessions[id] = memoryRecord{data: cloneBytes(sd.Data), expiresAt: sd.ExpiresAt}
	}
	return nil
}

// Close stops the sweeper and drops every record.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	m.sessions = nil
	return nil
}

// Len returns the number of records held, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.done:
			return
		}
	}
}

func (m *MemoryStore) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	now := m.now()
	for id, rec := range m.sessions {
		if rec.expired(now) {
			delete(m.sessions, id)
		}
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
