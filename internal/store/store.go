// Package store keeps working seating sessions between requests. A session
// is persisted as its snapshot document under "<prefix>:<owner>:<id>", and
// every mutation runs load → change → save under a per-key lock so a failed
// operation never persists partial state.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/classroom-seating/internal/config"
	"github.com/iliyamo/classroom-seating/internal/seating"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many open sessions")
)

// Backend is raw keyed storage with expiry.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Keys lists live keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Manager owns the sessions of all teachers.
type Manager struct {
	backend Backend
	cfg     config.SessionConfig
	locks   keyLocks
	newID   func() string
}

func NewManager(b Backend, cfg config.SessionConfig) *Manager {
	if cfg.Prefix == "" {
		cfg.Prefix = "seating:session"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	return &Manager{backend: b, cfg: cfg, newID: uuid.NewString}
}

func (m *Manager) ownerPrefix(owner string) string {
	return m.cfg.Prefix + ":" + owner + ":"
}

func (m *Manager) key(owner, id string) string {
	return m.ownerPrefix(owner) + id
}

// Create stores a new empty session and returns its id.
func (m *Manager) Create(ctx context.Context, owner string, rows, cols int, o seating.Orientation) (string, *seating.Session, error) {
	s, err := seating.New(rows, cols, &seating.Options{Orientation: o})
	if err != nil {
		return "", nil, err
	}
	id, err := m.insert(ctx, owner, s)
	if err != nil {
		return "", nil, err
	}
	return id, s, nil
}

// CreateFrom stores a new session restored from snap.
func (m *Manager) CreateFrom(ctx context.Context, owner string, snap seating.Snapshot) (string, *seating.Session, error) {
	s, err := seating.FromSnapshot(snap, nil)
	if err != nil {
		return "", nil, err
	}
	id, err := m.insert(ctx, owner, s)
	if err != nil {
		return "", nil, err
	}
	return id, s, nil
}

func (m *Manager) insert(ctx context.Context, owner string, s *seating.Session) (string, error) {
	if m.cfg.MaxPerOwner > 0 {
		ids, err := m.List(ctx, owner)
		if err != nil {
			return "", err
		}
		if len(ids) >= m.cfg.MaxPerOwner {
			return "", fmt.Errorf("%w: limit is %d", ErrTooManySessions, m.cfg.MaxPerOwner)
		}
	}
	id := m.newID()
	if err := m.save(ctx, m.key(owner, id), s); err != nil {
		return "", err
	}
	return id, nil
}

// Get loads a session for reading. Changes to the returned value are not
// persisted; use Update for that.
func (m *Manager) Get(ctx context.Context, owner, id string) (*seating.Session, error) {
	return m.load(ctx, m.key(owner, id))
}

// Update loads the session, applies fn and saves the result only when fn
// returns nil. Calls for the same session are serialized. The session is
// returned in its final state, unchanged when fn failed.
func (m *Manager) Update(ctx context.Context, owner, id string, fn func(*seating.Session) error) (*seating.Session, error) {
	key := m.key(owner, id)
	unlock := m.locks.lock(key)
	defer unlock()

	s, err := m.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		// reload so callers never see the half-applied value
		if fresh, lerr := m.load(ctx, key); lerr == nil {
			return fresh, err
		}
		return nil, err
	}
	if err := m.save(ctx, key, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Delete drops a session.
func (m *Manager) Delete(ctx context.Context, owner, id string) error {
	key := m.key(owner, id)
	unlock := m.locks.lock(key)
	defer unlock()
	return m.backend.Delete(ctx, key)
}

// List returns the ids of the owner's live sessions.
func (m *Manager) List(ctx context.Context, owner string) ([]string, error) {
	prefix := m.ownerPrefix(owner)
	keys, err := m.backend.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, prefix))
	}
	return ids, nil
}

func (m *Manager) load(ctx context.Context, key string) (*seating.Session, error) {
	data, err := m.backend.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	snap, err := seating.ParseSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return seating.FromSnapshot(snap, nil)
}

func (m *Manager) save(ctx context.Context, key string, s *seating.Session) error {
	data, err := s.ExportJSON()
	if err != nil {
		return err
	}
	return m.backend.Save(ctx, key, data, m.cfg.TTL)
}

// keyLocks hands out one mutex per key and forgets it once nobody holds or
// waits for it.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func (l *keyLocks) lock(key string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*keyLock)
	}
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.Lock()
	return func() {
		kl.Unlock()
		l.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
