package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/andrebq/rolegate/identity"
)

type (
	memStore struct {
		cache *bigcache.BigCache
		ttl   time.Duration
		now   func() time.Time
	}

	Option func(*memStore)
)

// WithClock replaces time.Now when checking for expired sessions
func WithClock(now func() time.Time) Option {
	return func(m *memStore) {
		m.now = now
	}
}

// InMemory returns a Store backed by bigcache. Sessions older than ttl
// are treated as missing, bigcache reclaims their memory later.
func InMemory(ttl time.Duration, opts ...Option) (Store, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("session: ttl must be positive, got %v", ttl)
	}
	cfg := bigcache.DefaultConfig(ttl)
	cfg.CleanWindow = time.Minute
	if ttl < cfg.CleanWindow {
		cfg.CleanWindow = ttl
	}
	cfg.Verbose = false
	cache, err := bigcache.NewBigCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("session: unable to create cache, cause %w", err)
	}
	m := &memStore{
		cache: cache,
		ttl:   ttl,
		now:   time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

func (m *memStore) Create(ctx context.Context, id identity.Identity) (Session, error) {
	if !id.Authenticated() {
		return Session{}, errors.New("session: cannot create a session for an anonymous caller")
	}
	sid, err := newID()
	if err != nil {
		return Session{}, err
	}
	s := Session{
		ID:        sid,
		Username:  id.Username,
		Roles:     id.Roles,
		CreatedAt: m.now().UTC(),
	}
	buf, err := json.Marshal(s)
	if err != nil {
		return Session{}, fmt.Errorf("session: unable to encode session, cause %w", err)
	}
	if err := m.cache.Set(sid, buf); err != nil {
		return Session{}, fmt.Errorf("session: unable to save session, cause %w", err)
	}
	return s, nil
}

func (m *memStore) Lookup(ctx context.Context, sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, ErrNotFound
	}
	buf, err := m.cache.Get(sessionID)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return Session{}, ErrNotFound
	} else if err != nil {
		return Session{}, fmt.Errorf("session: unable to read session, cause %w", err)
	}
	var s Session
	if err := json.Unmarshal(buf, &s); err != nil {
		return Session{}, fmt.Errorf("session: unable to decode session, cause %w", err)
	}
	if m.now().Sub(s.CreatedAt) >= m.ttl {
		m.cache.Delete(sessionID)
		return Session{}, ErrNotFound
	}
	s.ID = sessionID
	return s, nil
}

// Destroy is idempotent, removing a missing session is not an error
func (m *memStore) Destroy(ctx context.Context, sessionID string) error {
	err := m.cache.Delete(sessionID)
	if err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return fmt.Errorf("session: unable to destroy session, cause %w", err)
	}
	return nil
}

// Close stops the cache janitor
func (m *memStore) Close() error {
	return m.cache.Close()
}
