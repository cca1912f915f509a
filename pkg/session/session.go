package session

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Session is a live session. It satisfies auth.Session.
// It is safe for concurrent use by the HTTP handlers and the live channel
// of the same browser.
type Session struct {
	id string

	mu         sync.RWMutex
	createdAt  time.Time
	lastActive time.Time
	values     map[string]any
	dirty      bool
	isNew      bool
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		id:         id,
		createdAt:  now,
		lastActive: now,
		values:     make(map[string]any),
		isNew:      true,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Get returns the value stored under key, or nil.
func (s *Session) Get(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

// Set stores a value. It must be JSON-encodable to be persisted.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.dirty = true
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.dirty = true
	}
}

// Keys returns the stored keys in sorted order.
func (s *Session) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CreatedAt returns when the session was first created.
func (s *Session) CreatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.createdAt
}

// LastActive returns when the session was last saved or loaded.
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// IsNew reports whether the session has never been saved.
func (s *Session) IsNew() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isNew
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActive = now
	s.mu.Unlock()
}

func (s *Session) record() (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := &Record{
		ID:         s.id,
		CreatedAt:  s.createdAt,
		LastActive: s.lastActive,
		Values:     make(map[string]json.RawMessage, len(s.values)),
	}
	for k, v := range s.values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("session: encode value %q: %w", k, err)
		}
		rec.Values[k] = raw
	}
	return rec, nil
}

// markSaved clears the dirty and new flags after a successful write.
func (s *Session) markSaved(at time.Time) {
	s.mu.Lock()
	s.dirty = false
	s.isNew = false
	s.lastActive = at
	s.mu.Unlock()
}

func (s *Session) needsWrite() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty || s.isNew
}

func (s *Session) clear() {
	s.mu.Lock()
	s.values = make(map[string]any)
	s.dirty = false
	s.mu.Unlock()
}

func fromRecord(rec *Record) (*Session, error) {
	s := &Session{
		id:         rec.ID,
		createdAt:  rec.CreatedAt,
		lastActive: rec.LastActive,
		values:     make(map[string]any, len(rec.Values)),
	}
	for k, raw := range rec.Values {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("session: decode value %q: %w", k, err)
		}
		s.values[k] = v
	}
	return s, nil
}
