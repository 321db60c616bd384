package inmemcache

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/chat"
)

type entry struct {
	ts        chat.TempSession
	expiresAt time.Time
}

// SessionStore keeps temporary sessions in memory. Expired sessions are dropped lazily.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]entry
}

var _ chat.SessionStore = (*SessionStore)(nil) // interface compliance check

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]entry)}
}

func (s *SessionStore) Save(_ context.Context, ts chat.TempSession, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purge()
	s.sessions[ts.ID] = entry{ts: ts, expiresAt: core.NowFunc().Add(ttl)}
	return nil
}

func (s *SessionStore) get(id string) (chat.TempSession, error) {
	e, ok := s.sessions[id]
	if !ok {
		return chat.TempSession{}, chat.ErrTempSessionNotFound
	}
	if !core.NowFunc().Before(e.expiresAt) {
		delete(s.sessions, id)
		return chat.TempSession{}, chat.ErrTempSessionNotFound
	}
	return e.ts, nil
}

func (s *SessionStore) Get(_ context.Context, id string) (chat.TempSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

func (s *SessionStore) Take(_ context.Context, id string) (chat.TempSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts, err := s.get(id)
	if err == nil {
		delete(s.sessions, id)
	}
	return ts, err
}

// Len counts the sessions that have not expired.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purge()
	return len(s.sessions)
}

func (s *SessionStore) purge() {
	now := core.NowFunc()
	for id, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, id)
		}
	}
}
