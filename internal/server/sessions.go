package server

import (
	"time"

	"github.com/patrickmn/go-cache"

	"ask-ai/internal/chat"
)

// SessionStore keeps chat sessions in memory with sliding expiration.
type SessionStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		cache: cache.New(ttl, ttl/6),
		ttl:   ttl,
	}
}

func (s *SessionStore) Save(sess *chat.Session) {
	s.cache.Set(sess.ID, sess, cache.DefaultExpiration)
}

// Get returns the session and extends its lifetime.
func (s *SessionStore) Get(id string) (*chat.Session, bool) {
	x, found := s.cache.Get(id)
	if !found {
		return nil, false
	}
	sess := x.(*chat.Session)
	s.cache.Set(id, sess, cache.DefaultExpiration)
	return sess, true
}

func (s *SessionStore) Delete(id string) {
	s.cache.Delete(id)
}

func (s *SessionStore) Count() int {
	return s.cache.ItemCount()
}
