// Package auth holds the contract with the external session provider.
// Token issuance and login/logout live elsewhere; the engine only observes
// the current token and treats present<->absent transitions as session
// start/teardown signals.
package auth

import (
	"strings"
	"sync"
)

// TokenSource yields the current bearer token, if any.
type TokenSource interface {
	Token() (string, bool)
}

// Source is a mutable, config-backed token source. The zero value is an
// unauthenticated source.
type Source struct {
	mu    sync.RWMutex
	token string
	user  string
}

func NewSource() *Source { return &Source{} }

// Set replaces the current credentials. An empty token means logged out.
func (s *Source) Set(token, user string) {
	s.mu.Lock()
	s.token = strings.TrimSpace(token)
	s.user = strings.TrimSpace(user)
	s.mu.Unlock()
}

func (s *Source) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// User returns the identity supplied by the session provider.
func (s *Source) User() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.user != ""
}

// StaticToken is a fixed TokenSource, handy in tests.
type StaticToken string

func (t StaticToken) Token() (string, bool) { return string(t), t != "" }
