package httpapi

import (
	"time"

	"github.com/patrickmn/go-cache"

	"recon-report/internal/usecase"
)

// SessionFactory creates a fresh, empty report session.
type SessionFactory func() *usecase.ReportSession

// SessionStore keeps report sessions in memory and forgets them after ttl without use.
type SessionStore struct {
	sessions *cache.Cache
	ttl      time.Duration
	create   SessionFactory
}

func NewSessionStore(ttl time.Duration, create SessionFactory) *SessionStore {
	return &SessionStore{
		sessions: cache.New(ttl, 2*ttl),
		ttl:      ttl,
		create:   create,
	}
}

// Create starts a new session and returns it.
func (s *SessionStore) Create() *usecase.ReportSession {
	session := s.create()
	s.sessions.Set(session.ID(), session, s.ttl)
	return session
}

// Get returns the session with id and extends its lifetime.
func (s *SessionStore) Get(id string) (*usecase.ReportSession, bool) {
	item, found := s.sessions.Get(id)
	if !found {
		return nil, false
	}
	session := item.(*usecase.ReportSession)
	s.sessions.Set(id, session, s.ttl)
	return session, true
}

// Delete resets and forgets the session. It reports whether the session existed.
func (s *SessionStore) Delete(id string) bool {
	session, found := s.Get(id)
	if !found {
		return false
	}
	session.Reset()
	s.sessions.Delete(id)
	return true
}

// Count is the number of live sessions.
func (s *SessionStore) Count() int { return s.sessions.ItemCount() }
