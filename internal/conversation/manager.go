package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/totalhomes/lead-qualifier/internal/qualify"
)

// Manager owns the live sessions of one process. When a store is configured,
// sessions are persisted after every change and restored on a cache miss, so a
// conversation survives a restart or moves between instances.
type Manager struct {
	opts   SessionOptions
	store  SessionStore
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager builds a manager. store may be nil.
func NewManager(opts SessionOptions, store SessionStore) *Manager {
	opts = withDefaults(opts)
	return &Manager{
		opts:     opts,
		store:    store,
		logger:   opts.Logger,
		sessions: make(map[string]*Session),
	}
}

// Backend reports which backend drives new turns.
func (m *Manager) Backend() string { return m.opts.Backend.Name() }

// Create opens a new session in lang and returns it with its greeting.
func (m *Manager) Create(ctx context.Context, lang qualify.Language) *Session {
	s := NewSession(lang, m.opts)
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	m.persist(ctx, s)
	m.logger.Info("chat session created", "session_id", s.ID(), "language", s.Language(), "backend", m.Backend())
	return s
}

// Get returns the session with id, restoring it from the store if needed.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}
	if m.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	snap, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have restored it while the lock was released.
	if existing, ok := m.sessions[id]; ok {
		return existing, nil
	}
	s = RestoreSession(snap, m.opts)
	m.sessions[id] = s
	return s, nil
}

// Send runs one turn on the session with id.
func (m *Manager) Send(ctx context.Context, id, utterance string) (TurnResult, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return TurnResult{}, err
	}
	res, err := s.Send(ctx, utterance)
	if err != nil {
		return TurnResult{}, err
	}
	m.persist(ctx, s)
	return res, nil
}

// Finish forces the session with id to end and returns its final snapshot.
func (m *Manager) Finish(ctx context.Context, id string) (Snapshot, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	snap, err := s.Finish(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	m.persist(ctx, s)
	return snap, nil
}

// Reset restarts the session with id from the greeting.
func (m *Manager) Reset(ctx context.Context, id string) (Snapshot, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	if err := s.Reset(); err != nil {
		return Snapshot{}, err
	}
	m.persist(ctx, s)
	return s.Snapshot(), nil
}

// Remove forgets the session locally and in the store.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	if m.store == nil {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}
	return nil
}

// Len reports how many sessions are held in memory.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// persist is best effort: the in-memory session stays authoritative.
func (m *Manager) persist(ctx context.Context, s *Session) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(context.WithoutCancel(ctx), s.Snapshot()); err != nil {
		m.logger.Warn("failed to persist chat session", "session_id", s.ID(), "error", err)
	}
}
