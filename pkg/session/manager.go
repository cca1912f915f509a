package session

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/starter/pkg/auth"
)

// ManagerConfig configures the session manager.
type ManagerConfig struct {
	// CookieName names the session cookie. Default: "starter_session".
	CookieName string

	// CookiePath scopes the cookie. Default: "/".
	CookiePath string

	// Secure marks the cookie HTTPS-only.
	Secure bool

	// SameSite sets the cookie SameSite mode. Default: http.SameSiteLaxMode.
	SameSite http.SameSite

	// TTL is how long a session lives after its last save. Default: 24h.
	TTL time.Duration

	// MaxLive bounds the sessions kept in memory. The least recently used
	// session is evicted beyond it. Default: 10000.
	MaxLive int
}

// DefaultManagerConfig returns a ManagerConfig with sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		CookieName: "starter_session",
		CookiePath: "/",
		SameSite:   http.SameSiteLaxMode,
		TTL:        24 * time.Hour,
		MaxLive:    10000,
	}
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	d := DefaultManagerConfig()
	if c.CookieName == "" {
		c.CookieName = d.CookieName
	}
	if c.CookiePath == "" {
		c.CookiePath = d.CookiePath
	}
	if c.SameSite == 0 {
		c.SameSite = d.SameSite
	}
	if c.TTL <= 0 {
		c.TTL = d.TTL
	}
	if c.MaxLive <= 0 {
		c.MaxLive = d.MaxLive
	}
	return c
}

// ErrManagerStopped is returned when operations are attempted after Shutdown.
var ErrManagerStopped = errors.New("session: manager is stopped")

// Manager loads, caches and persists sessions identified by cookie.
type Manager struct {
	mu      sync.Mutex
	live    map[string]*list.Element
	lru     *list.List // front = most recently used
	onEvict []func(id string)
	stopped bool

	store  Store
	config ManagerConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a manager over store. A nil logger uses slog.Default().
func NewManager(store Store, config ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		live:   make(map[string]*list.Element),
		lru:    list.New(),
		store:  store,
		config: config.withDefaults(),
		logger: logger.With("component", "session"),
		now:    time.Now,
	}
}

// Config returns the effective configuration.
func (m *Manager) Config() ManagerConfig {
	return m.config
}

// OnEvict registers a callback run when a session leaves memory, either
// by LRU eviction or Destroy.
func (m *Manager) OnEvict(fn func(id string)) {
	m.mu.Lock()
	m.onEvict = append(m.onEvict, fn)
	m.mu.Unlock()
}

// Load returns the request's session, creating a fresh one when the cookie
// is absent, malformed or points at an expired record. A fresh session is
// not persisted until Save.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	id := ""
	if c, err := r.Cookie(m.config.CookieName); err == nil {
		if parsed, err := uuid.Parse(c.Value); err == nil {
			id = parsed.String()
		}
	}
	if id == "" {
		return m.create()
	}

	if s := m.cached(id); s != nil {
		return s, nil
	}

	data, err := m.store.Load(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return m.create()
	}
	rec, err := Decode(data)
	if err != nil {
		m.logger.Warn("discarding unreadable session", "session_id", id, "error", err)
		return m.create()
	}
	s, err := fromRecord(rec)
	if err != nil {
		m.logger.Warn("discarding unreadable session", "session_id", id, "error", err)
		return m.create()
	}
	s.touch(m.now())
	return m.admit(s), nil
}

func (m *Manager) create() (*Session, error) {
	m.mu.Lock()
	stopped := m.stopped
	m.mu.Unlock()
	if stopped {
		return nil, ErrManagerStopped
	}
	return m.admit(newSession(uuid.NewString(), m.now())), nil
}

func (m *Manager) cached(id string) *Session {
	m.mu.Lock()
	el, ok := m.live[id]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	s := el.Value.(*Session)
	if m.now().Sub(s.LastActive()) < m.config.TTL {
		m.lru.MoveToFront(el)
		m.mu.Unlock()
		return s
	}

	m.lru.Remove(el)
	delete(m.live, id)
	callbacks := m.onEvict
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(id)
	}
	return nil
}

// admit caches s, returning the already cached session if another request
// loaded the same ID first.
func (m *Manager) admit(s *Session) *Session {
	m.mu.Lock()
	if el, ok := m.live[s.id]; ok {
		m.lru.MoveToFront(el)
		m.mu.Unlock()
		return el.Value.(*Session)
	}
	m.live[s.id] = m.lru.PushFront(s)

	var evicted []*Session
	for m.lru.Len() > m.config.MaxLive {
		el := m.lru.Back()
		victim := el.Value.(*Session)
		m.lru.Remove(el)
		delete(m.live, victim.id)
		evicted = append(evicted, victim)
	}
	callbacks := m.onEvict
	m.mu.Unlock()

	for _, victim := range evicted {
		if victim.needsWrite() && !victim.IsNew() {
			if err := m.persist(context.Background(), victim); err != nil {
				m.logger.Warn("failed to persist evicted session", "session_id", victim.id, "error", err)
			}
		}
		for _, fn := range callbacks {
			fn(victim.id)
		}
	}
	return s
}

func (m *Manager) persist(ctx context.Context, s *Session) error {
	at := m.now()
	s.touch(at)
	rec, err := s.record()
	if err != nil {
		return err
	}
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, s.id, data, at.Add(m.config.TTL)); err != nil {
		return err
	}
	s.markSaved(at)
	return nil
}

// Save persists the session and refreshes its cookie. Unchanged sessions
// only have their expiry extended.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if s.needsWrite() {
		if err := m.persist(ctx, s); err != nil {
			return fmt.Errorf("session: save %s: %w", s.id, err)
		}
	} else {
		at := m.now()
		if err := m.store.Touch(ctx, s.id, at.Add(m.config.TTL)); err != nil {
			return fmt.Errorf("session: touch %s: %w", s.id, err)
		}
		s.touch(at)
	}
	http.SetCookie(w, m.cookie(s.id, int(m.config.TTL/time.Second)))
	return nil
}

// Destroy deletes the session everywhere and expires its cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	m.mu.Lock()
	if el, ok := m.live[s.id]; ok {
		m.lru.Remove(el)
		delete(m.live, s.id)
	}
	callbacks := m.onEvict
	m.mu.Unlock()

	s.clear()
	for _, fn := range callbacks {
		fn(s.id)
	}
	http.SetCookie(w, m.cookie("", -1))
	if err := m.store.Delete(ctx, s.id); err != nil {
		return fmt.Errorf("session: destroy %s: %w", s.id, err)
	}
	return nil
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.config.CookieName,
		Value:    value,
		Path:     m.config.CookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.config.Secure,
		SameSite: m.config.SameSite,
	}
}

// Middleware loads the request's session and binds it to the request
// context (see auth.SessionFrom).
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Load(r)
		if err != nil {
			m.logger.Error("session load failed", "path", r.URL.Path, "error", err)
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), s)))
	})
}

// From returns the *Session bound to ctx by Middleware.
func From(ctx context.Context) (*Session, bool) {
	s, ok := auth.SessionFrom(ctx).(*Session)
	return s, ok && s != nil
}

// Len returns the number of sessions held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

// Shutdown persists every changed, previously saved session and stops the
// manager. The store itself is left open for its owner to close.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	var pending []*Session
	for el := m.lru.Front(); el != nil; el = el.Next() {
		s := el.Value.(*Session)
		if s.needsWrite() && !s.IsNew() {
			pending = append(pending, s)
		}
	}
	m.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}
	at := m.now()
	batch := make(map[string]Data, len(pending))
	for _, s := range pending {
		s.touch(at)
		rec, err := s.record()
		if err != nil {
			m.logger.Warn("skipping unencodable session", "session_id", s.id, "error", err)
			continue
		}
		data, err := Encode(rec)
		if err != nil {
			continue
		}
		batch[s.id] = Data{Data: data, ExpiresAt: at.Add(m.config.TTL)}
	}
	if err := m.store.SaveAll(ctx, batch); err != nil {
		return fmt.Errorf("session: shutdown: %w", err)
	}
	for _, s := range pending {
		s.markSaved(at)
	}
	m.logger.Info("sessions persisted", "count", len(batch))
	return nil
}
