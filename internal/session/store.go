package session

import (
	"sync"
	"time"

	"github.com/catalert/catalert/internal/provider"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is one conversation thread between a user/cat pair and the agent.
type Session struct {
	ID           string             `json:"id"`
	UserID       string             `json:"user_id"`
	CatID        string             `json:"cat_id"`
	History      []provider.Message `json:"history"`
	CreatedAt    time.Time          `json:"created_at"`
	LastActiveAt time.Time          `json:"last_active_at"`
}

type entry struct {
	mu        sync.Mutex
	sess      *Session
	lastTouch time.Time
}

// Store holds conversation sessions in memory, keyed by session id.
// Acquire hands out a per-session lock so concurrent requests for the same
// session are serialized; different sessions proceed in parallel. Sessions
// idle past the TTL are evicted by a background janitor.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	idleTTL  time.Duration
	stop     chan struct{}
	done     chan struct{}
	logger   *zap.Logger
}

// NewStore creates a session store and starts its eviction janitor.
func NewStore(idleTTL time.Duration, logger *zap.Logger) *Store {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	s := &Store{
		sessions: make(map[string]*entry),
		idleTTL:  idleTTL,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger,
	}
	go s.janitor()
	return s
}

// Acquire locks the session with the given id, creating a fresh id when none
// is supplied. The session itself is only materialized on Commit, so a turn
// that fails before committing leaves the store untouched. The caller must
// Release the handle.
func (s *Store) Acquire(sessionID string) *Handle {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	if !ok {
		e = &entry{}
		s.sessions[sessionID] = e
	}
	e.lastTouch = time.Now()
	s.mu.Unlock()

	e.mu.Lock()
	return &Handle{store: s, entry: e, id: sessionID}
}

// Get returns a snapshot of a committed session.
func (s *Store) Get(sessionID string) (*Session, bool) {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil {
		return nil, false
	}
	cp := *e.sess
	cp.History = append([]provider.Message(nil), e.sess.History...)
	return &cp, true
}

// Len returns the number of committed sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.sessions {
		if e.sess != nil {
			n++
		}
	}
	return n
}

// Close stops the janitor.
func (s *Store) Close() {
	close(s.stop)
	<-s.done
}

func (s *Store) janitor() {
	defer close(s.done)
	interval := s.idleTTL / 4
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.evict(now)
		}
	}
}

func (s *Store) evict(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.sessions {
		if !e.mu.TryLock() {
			continue // in use
		}
		idle := now.Sub(e.lastTouch)
		if e.sess != nil {
			idle = now.Sub(e.sess.LastActiveAt)
		}
		if idle > s.idleTTL {
			delete(s.sessions, id)
			s.logger.Debug("evicted idle session", zap.String("session_id", id))
		}
		e.mu.Unlock()
	}
}

// Handle is an exclusive grip on one session for the duration of a turn.
type Handle struct {
	store *Store
	entry *entry
	id    string
}

// ID returns the session id (generated if the caller supplied none).
func (h *Handle) ID() string { return h.id }

// History returns a copy of the committed conversation history.
func (h *Handle) History() []provider.Message {
	if h.entry.sess == nil {
		return nil
	}
	return append([]provider.Message(nil), h.entry.sess.History...)
}

// Commit appends a whole turn to the session, creating it on first use.
// Partial turns are never committed; callers pass the user message and the
// reply together.
func (h *Handle) Commit(userID, catID string, turns ...provider.Message) *Session {
	now := time.Now()
	if h.entry.sess == nil {
		h.entry.sess = &Session{
			ID:        h.id,
			UserID:    userID,
			CatID:     catID,
			CreatedAt: now,
		}
		// Re-insert in case the janitor dropped the empty entry.
		h.store.mu.Lock()
		h.store.sessions[h.id] = h.entry
		h.store.mu.Unlock()
	}
	h.entry.sess.History = append(h.entry.sess.History, turns...)
	h.entry.sess.LastActiveAt = now
	return h.entry.sess
}

// Release unlocks the session.
func (h *Handle) Release() {
	h.entry.mu.Unlock()
}
