// Package session tracks logged in users of the management interface.
//
// Three stores are provided: an in-process table, a Redis-backed table and
// a stateless store that encrypts the whole session into the cookie value.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNoSession is returned when a token does not name a live session.
var ErrNoSession = errors.New("session not found")

// Session is an authenticated login.
type Session struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	// ExpiresAt is zero for sessions that never expire.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

func newSession(username string, now time.Time, ttl time.Duration) *Session {
	s := &Session{Username: username, CreatedAt: now.UTC()}
	if ttl > 0 {
		s.ExpiresAt = s.CreatedAt.Add(ttl)
	}
	return s
}

// Store creates and resolves session tokens. Tokens are opaque strings
// suitable for a cookie value.
type Store interface {
	// Create starts a session for username and returns its token.
	Create(ctx context.Context, username string) (string, *Session, error)

	// Lookup returns the live session for token, or ErrNoSession.
	Lookup(ctx context.Context, token string) (*Session, error)

	// Invalidate ends the session for token. Unknown tokens are ignored.
	Invalidate(ctx context.Context, token string) error
}
