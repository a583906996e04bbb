package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/homewarden/homewarden/internal/log"
)

var (
	// ErrNotFound is returned when a session does not exist or has
	// expired.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidPhase is returned when an operation is attempted on a
	// session whose phase does not permit it.
	ErrInvalidPhase = errors.New("invalid session phase")
)

// entry wraps a stored session with its own lock so operations on
// different sessions never block each other.
type entry struct {
	mu      sync.Mutex
	sess    *Session
	expires time.Time
}

// Store is an in-memory session store with TTL eviction. Safe for
// concurrent use; mutations on a single session are serialized by a
// per-session lock.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	logger  log.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewStore creates a Store whose sessions expire ttl after their last
// write.
func NewStore(ttl time.Duration, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		logger:  logger.With("component", "session"),
		now:     time.Now,
	}
}

// Put stores a session, resetting its TTL. An existing session with
// the same ID is replaced.
func (st *Store) Put(sess *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.entries[sess.ID] = &entry{
		sess:    sess.clone(),
		expires: st.now().Add(st.ttl),
	}
}

// Get returns a copy of the session. Expired sessions are evicted and
// reported as ErrNotFound.
func (st *Store) Get(id string) (*Session, error) {
	e, err := st.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.clone(), nil
}

// Delete removes a session. Deleting a missing session is a no-op.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.entries, id)
}

// Len returns the number of live sessions, evicting expired ones.
func (st *Store) Len() int {
	st.PurgeExpired()
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.entries)
}

// PurgeExpired removes every expired session.
func (st *Store) PurgeExpired() {
	now := st.now()
	st.mu.Lock()
	defer st.mu.Unlock()
	for id, e := range st.entries {
		if now.After(e.expires) {
			delete(st.entries, id)
		}
	}
}

// Transition atomically mutates the session. The session must be in
// the from phase when the lock is acquired, fn receives a working copy
// to mutate, and the copy replaces the stored session only if fn
// succeeds and any phase change it made is legal. On error the stored
// session is untouched.
func (st *Store) Transition(id string, from Phase, fn func(*Session) error) (*Session, error) {
	e, err := st.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess.Phase != from {
		return nil, fmt.Errorf("%w: session %s is %s, expected %s",
			ErrInvalidPhase, id, e.sess.Phase, from)
	}

	working := e.sess.clone()
	if err := fn(working); err != nil {
		return nil, err
	}

	if !canTransition(from, working.Phase) {
		return nil, fmt.Errorf("%w: %s cannot move to %s",
			ErrInvalidPhase, from, working.Phase)
	}

	working.UpdatedAt = st.now().UTC()
	e.sess = working
	e.expires = st.now().Add(st.ttl)

	if working.Phase != from {
		st.logger.Info("session phase changed",
			"session_id", id,
			"from", from,
			"to", working.Phase)
	}

	return working.clone(), nil
}

// lookup finds a live entry, evicting it if expired.
func (st *Store) lookup(id string) (*entry, error) {
	st.mu.RLock()
	e, ok := st.entries[id]
	st.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if st.now().After(e.expires) {
		st.mu.Lock()
		// Re-check under the write lock: a concurrent Put may have
		// replaced the entry.
		if cur, ok := st.entries[id]; ok && cur == e {
			delete(st.entries, id)
		}
		st.mu.Unlock()
		return nil, fmt.Errorf("%w: %s expired", ErrNotFound, id)
	}

	return e, nil
}
