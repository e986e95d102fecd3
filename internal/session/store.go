// Package session holds short-lived per-user context, such as the ids
// returned by the user's last listing so a follow-up action can refer to
// "the previous selection". Entries are bounded and expire; this replaces
// an unbounded process-wide map.
package session

import (
	"sync"
	"time"
)

const (
	defaultTTL      = 15 * time.Minute
	defaultMaxUsers = 10000
	janitorInterval = time.Minute
)

type entry struct {
	ids       []string
	expiresAt time.Time
}

// Store keeps the most recent mail-id selection per user with TTL
// eviction. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	entries  map[string]entry
	ttl      time.Duration
	maxUsers int
	stop     chan struct{}
	stopOnce sync.Once
}

func NewStore() *Store {
	s := &Store{
		entries:  make(map[string]entry),
		ttl:      defaultTTL,
		maxUsers: defaultMaxUsers,
		stop:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

// SetLastIDs remembers a user's most recent selection
func (s *Store) SetLastIDs(userID string, ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.maxUsers {
		s.evictExpiredLocked()
		// Still full of live entries: drop the oldest one.
		if len(s.entries) >= s.maxUsers {
			var oldestUser string
			var oldestExpiry time.Time
			for user, e := range s.entries {
				if oldestUser == "" || e.expiresAt.Before(oldestExpiry) {
					oldestUser = user
					oldestExpiry = e.expiresAt
				}
			}
			delete(s.entries, oldestUser)
		}
	}

	copied := make([]string, len(ids))
	copy(copied, ids)
	s.entries[userID] = entry{ids: copied, expiresAt: time.Now().Add(s.ttl)}
}

// LastIDs returns the user's last selection, if any and not expired
func (s *Store) LastIDs(userID string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok || time.Now().After(e.expiresAt) {
		delete(s.entries, userID)
		return nil, false
	}

	copied := make([]string, len(e.ids))
	copy(copied, e.ids)
	return copied, true
}

// Clear removes a user's selection
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
}

// Close stops the background janitor
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			s.evictExpiredLocked()
			s.mu.Unlock()
		case <-s.stop:
			return
		}
	}
}

func (s *Store) evictExpiredLocked() {
	now := time.Now()
	for user, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, user)
		}
	}
}
