package session

import (
	"sync"

	"github.com/jrsteele09/go-lms-client/users"
)

// Status is the lifecycle state of the client session.
type Status string

const (
	StatusAnonymous     Status = "anonymous"     // No credentials; both tokens absent
	StatusRestoring     Status = "restoring"     // Persisted tokens found, identity fetch in progress
	StatusAuthenticated Status = "authenticated" // Access token and identity both present
	StatusRefreshing    Status = "refreshing"    // Access token rejected, refresh in flight
	StatusExpired       Status = "expired"       // Refresh failed; re-authentication required
)

// Session is the process-wide authentication state. There is exactly one per
// client process; it is created empty and injected into the gateway, the
// refresh coordinator, and the session manager rather than reached through a
// package-level global.
//
// Invariants: StatusAuthenticated implies a non-nil identity;
// StatusAnonymous implies the credential store holds no tokens (the session
// manager and gateway clear the store on every transition to anonymous).
type Session struct {
	lock     sync.RWMutex
	status   Status
	identity *users.User
	epoch    uint64
}

// Snapshot is an immutable view of the session taken under the lock, safe to
// hand to routing or any other reader without further synchronisation.
type Snapshot struct {
	Status   Status
	Identity *users.User
	Epoch    uint64
}

// New returns an empty, anonymous session.
func New() *Session {
	return &Session{status: StatusAnonymous}
}

// Snapshot returns a consistent view of the current state.
func (s *Session) Snapshot() Snapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return Snapshot{Status: s.status, Identity: s.identity, Epoch: s.epoch}
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.status
}

// Identity returns the cached authenticated user, or nil.
func (s *Session) Identity() *users.User {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.identity
}

// Epoch returns the current session epoch. The counter increases on every
// transition that invalidates outstanding credentials (login, logout, reset),
// letting an in-flight refresh detect that its result is stale.
func (s *Session) Epoch() uint64 {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.epoch
}

// BeginRestore attempts the Anonymous -> Restoring transition. It returns
// false when the session is in any other state, which makes Restore calls
// after the first no-ops.
func (s *Session) BeginRestore() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.status != StatusAnonymous {
		return false
	}
	s.status = StatusRestoring
	return true
}

// Authenticate installs a freshly fetched identity and moves the session to
// Authenticated. The epoch is bumped so any refresh still in flight from a
// previous identity discards its result.
func (s *Session) Authenticate(identity *users.User) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.status = StatusAuthenticated
	s.identity = identity
	s.epoch++
}

// ReplaceIdentity swaps the cached user record wholesale after a profile
// update. Only valid while authenticated; the epoch is untouched because the
// credentials themselves did not change.
func (s *Session) ReplaceIdentity(identity *users.User) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.status != StatusAuthenticated && s.status != StatusRefreshing {
		return
	}
	s.identity = identity
}

// Reset clears the session back to Anonymous and bumps the epoch. Used by
// logout, failed restore, and the gateway's refresh-failure teardown. Callers
// are responsible for clearing the credential store alongside.
func (s *Session) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.status = StatusAnonymous
	s.identity = nil
	s.epoch++
}

// BeginRefresh marks the session as Refreshing and returns a completion
// callback. end(true) restores the prior status, end(false) moves to Expired.
// If a login or logout changed the epoch while the refresh ran, end is a
// no-op: the explicit transition wins.
func (s *Session) BeginRefresh() (end func(ok bool)) {
	s.lock.Lock()
	prev := s.status
	epoch := s.epoch
	s.status = StatusRefreshing
	s.lock.Unlock()

	return func(ok bool) {
		s.lock.Lock()
		defer s.lock.Unlock()

		if s.epoch != epoch || s.status != StatusRefreshing {
			return
		}
		if ok {
			s.status = prev
		} else {
			s.status = StatusExpired
		}
	}
}
