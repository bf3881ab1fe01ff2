// Package auth gates the editor behind a Google sign-in and keeps the
// resulting sessions in memory.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Identity is the verified user behind a session.
type Identity struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// Session is a signed-in browser session.
type Session struct {
	Token     string
	Identity  Identity
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store holds sessions in memory until they expire or are deleted.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	onEvict  []func(token string)
}

// NewStore creates a store whose sessions live for ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// TTL returns the session lifetime.
func (s *Store) TTL() time.Duration { return s.ttl }

// OnEvict registers fn to run after a session is deleted or expires.
func (s *Store) OnEvict(fn func(token string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = append(s.onEvict, fn)
}

// Create starts a session for id under a fresh random token.
func (s *Store) Create(id Identity) *Session {
	now := s.now()
	sess := &Session{
		Token:     uuid.NewString(),
		Identity:  id,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the live session for token.
func (s *Store) Get(token string) (*Session, bool) {
	if token == "" {
		return nil, false
	}
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok || !s.now().Before(sess.ExpiresAt) {
		return nil, false
	}
	return sess, true
}

// Delete ends the session for token. It reports whether one existed.
func (s *Store) Delete(token string) bool {
	s.mu.Lock()
	_, ok := s.sessions[token]
	delete(s.sessions, token)
	hooks := s.onEvict
	s.mu.Unlock()

	if ok {
		for _, fn := range hooks {
			fn(token)
		}
	}
	return ok
}

// Sweep removes expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.now()
	var expired []string

	s.mu.Lock()
	for token, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			expired = append(expired, token)
			delete(s.sessions, token)
		}
	}
	hooks := s.onEvict
	s.mu.Unlock()

	for _, token := range expired {
		for _, fn := range hooks {
			fn(token)
		}
	}
	return len(expired)
}

// RunJanitor sweeps expired sessions every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Len returns the number of stored sessions, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
