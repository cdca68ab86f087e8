// Package session holds the client-side session state: the access token, the
// session user, and the single-flight gate guarding token refresh.
package session

import (
	"strconv"
	"sync"
	"time"

	"github.com/barre-app/barre/internal/wire"
)

// Session is the in-memory session state. It is mutated by login, by
// reactive refresh after an auth_error, and by the sliding-session timer's
// proactive refresh.
type Session struct {
	mu          sync.RWMutex
	accessToken string
	user        wire.User
	expiresAt   time.Time
	hasExpiry   bool
}

// New creates an empty session.
func New() *Session {
	return &Session{}
}

// Apply installs a token response into the session. The new access token
// fully replaces the old one; server-returned user fields take precedence
// over stale local ones, and fields the server omitted keep their local
// value.
func (s *Session) Apply(resp wire.TokenResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accessToken = resp.AccessToken
	s.expiresAt, s.hasExpiry = jwtExpiresAt(resp.AccessToken)
	if !s.hasExpiry && resp.ExpiresIn > 0 {
		s.expiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		s.hasExpiry = true
	}

	if resp.User.ID != 0 {
		s.user.ID = resp.User.ID
	}
	if resp.User.UserID != "" {
		s.user.UserID = resp.User.UserID
	}
	if resp.User.Name != "" {
		s.user.Name = resp.User.Name
	}
	if resp.User.Role != "" {
		s.user.Role = resp.User.Role
	}
}

// AccessToken returns the current access token.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// User returns the current session user.
func (s *Session) User() wire.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// UserIDString returns the numeric user id formatted for the refresh
// endpoint's request body.
func (s *Session) UserIDString() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return strconv.FormatInt(s.user.ID, 10)
}

// ExpiresAt returns the access token's expiry, when known.
func (s *Session) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt, s.hasExpiry
}
