package session

import (
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/patrickmn/go-cache"
)

// Store keeps sessions in memory, keyed by session id.
//
// Entries expire after ttl without a [Store.Touch] and are purged by the cache janitor every sweep interval.
// Sessions go in and come out by value, so two requests never share a record.
type Store struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewStore creates a [Store]. A non-positive sweep disables the background janitor.
func NewStore(ttl, sweep time.Duration) *Store {
	if sweep <= 0 {
		sweep = -1
	}
	return &Store{cache: cache.New(ttl, sweep), ttl: ttl}
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Get returns a copy of the stored session.
func (s *Store) Get(id string) (models.Session, bool) {
	if id == "" {
		return models.Session{}, false
	}
	x, found := s.cache.Get(id)
	if !found {
		return models.Session{}, false
	}
	return clone(x.(models.Session)), true
}

// Save stores a copy of sess and resets its expiry.
func (s *Store) Save(sess models.Session) {
	s.cache.Set(sess.ID, clone(sess), cache.DefaultExpiration)
}

// Touch marks the session as seen now and extends its expiry. It reports false for unknown ids.
func (s *Store) Touch(id string, now time.Time) bool {
	sess, ok := s.Get(id)
	if !ok {
		return false
	}
	sess.LastSeen = now
	s.Save(sess)
	return true
}

func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

// Sweep removes expired entries immediately.
func (s *Store) Sweep() {
	s.cache.DeleteExpired()
}

// Count returns the number of entries held, including expired ones not yet swept.
func (s *Store) Count() int {
	return s.cache.ItemCount()
}

func clone(sess models.Session) models.Session {
	if sess.Credential != nil {
		tok := *sess.Credential
		sess.Credential = &tok
	}
	return sess
}

