package auth

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type pendingLogin struct {
	expires time.Time
	next    string
}

// stateStore holds single-use OAuth states for the lifetime of a consent
// round trip. It lives in process memory, so the start and callback must hit
// the same instance.
type stateStore struct {
	mu    sync.Mutex
	clock clockwork.Clock
	ttl   time.Duration
	items map[string]pendingLogin
}

func newStateStore(clock clockwork.Clock, ttl time.Duration) *stateStore {
	return &stateStore{clock: clock, ttl: ttl, items: make(map[string]pendingLogin)}
}

func (s *stateStore) put(state, next string) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.items {
		if now.After(v.expires) {
			delete(s.items, k)
		}
	}
	s.items[state] = pendingLogin{expires: now.Add(s.ttl), next: next}
}

// consume returns the login's next path and whether the state was valid.
func (s *stateStore) consume(state string) (string, bool) {
	s.mu.Lock()
	login, ok := s.items[state]
	delete(s.items, state)
	s.mu.Unlock()
	if !ok || s.clock.Now().After(login.expires) {
		return "", false
	}
	return login.next, true
}

func (s *stateStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
