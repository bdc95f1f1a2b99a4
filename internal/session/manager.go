package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/angelmondragon/cartflow/internal/checkout"
	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
	"github.com/angelmondragon/cartflow/pkg/logger"
	redisclient "github.com/angelmondragon/cartflow/pkg/redis"
)

// Manager hands out live sessions and persists their snapshots to Redis.
// Sessions touched by this process stay cached so every request for the same
// id shares one lock.
type Manager struct {
	store   redisclient.SessionStore
	ttl     time.Duration
	tracker checkout.ShippingInfoTracker
	logg    *logger.Logger
	now     func() time.Time

	mu   sync.Mutex
	live map[string]*liveSession
}

type liveSession struct {
	sess     *Session
	lastSeen time.Time
}

// NewManager constructs a session manager backed by Redis. tracker may be nil.
func NewManager(store redisclient.SessionStore, ttl time.Duration, tracker checkout.ShippingInfoTracker, logg *logger.Logger) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Manager{
		store:   store,
		ttl:     ttl,
		tracker: tracker,
		logg:    logg,
		now:     time.Now,
		live:    make(map[string]*liveSession),
	}, nil
}

// Create starts an empty session and persists it.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	sess := newSession(uuid.NewString(), m.now().UTC(), m.tracker)
	if err := m.Save(ctx, sess); err != nil {
		return nil, err
	}
	m.remember(sess)
	return sess, nil
}

// Get returns the live session for id, loading it from Redis on first use.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid session id")
	}
	if sess := m.cached(id); sess != nil {
		return sess, nil
	}

	raw, err := m.store.Get(ctx, m.store.SessionKey(id))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	snap, err := Decode([]byte(raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode session")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.live[id]; ok {
		entry.lastSeen = m.now()
		return entry.sess, nil
	}
	sess := restore(snap, m.tracker)
	m.live[id] = &liveSession{sess: sess, lastSeen: m.now()}
	return sess, nil
}

// Update applies fn and persists the result. If the write fails the
// mutation is rolled back and the error returned.
func (m *Manager) Update(ctx context.Context, sess *Session, fn func(tx *Tx) error) error {
	return sess.Commit(fn, m.writer(ctx))
}

// UpdateAt is Update guarded by the revision the caller last observed. It
// reports false when the session has changed since.
func (m *Manager) UpdateAt(ctx context.Context, sess *Session, revision uint64, fn func(tx *Tx)) (bool, error) {
	return sess.CommitAt(revision, fn, m.writer(ctx))
}

// Save writes the session snapshot and refreshes its TTL.
func (m *Manager) Save(ctx context.Context, sess *Session) error {
	return sess.Persist(m.writer(ctx))
}

func (m *Manager) writer(ctx context.Context) func(Snapshot) error {
	return func(snap Snapshot) error {
		data, err := Encode(snap)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode session")
		}
		if err := m.store.Set(ctx, m.store.SessionKey(snap.ID), string(data), m.ttl); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist session")
		}
		return nil
	}
}

// Delete forgets a session locally and in Redis.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.live, id)
	m.mu.Unlock()
	if err := m.store.Del(ctx, m.store.SessionKey(id)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete session")
	}
	return nil
}

// Flush persists every cached session, typically on shutdown.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.live))
	for _, entry := range m.live {
		sessions = append(sessions, entry.sess)
	}
	m.mu.Unlock()

	var errs error
	for _, sess := range sessions {
		errs = multierr.Append(errs, m.Save(ctx, sess))
	}
	if errs != nil {
		m.logg.Error(ctx, "session flush incomplete", errs)
	}
	return errs
}

func (m *Manager) cached(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.live[id]
	if !ok {
		return nil
	}
	if m.now().Sub(entry.lastSeen) > m.ttl {
		delete(m.live, id)
		return nil
	}
	entry.lastSeen = m.now()
	return entry.sess
}

func (m *Manager) remember(sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, entry := range m.live {
		if now.Sub(entry.lastSeen) > m.ttl {
			delete(m.live, id)
		}
	}
	m.live[sess.ID()] = &liveSession{sess: sess, lastSeen: now}
}
