// ABOUTME: MCP token store holding the bearer tokens accepted on the endpoint.
// ABOUTME: Tokens come from configuration; an empty store means open access.

package mcp

import (
	"sync"

	"github.com/google/uuid"
)

// TokenStore manages the set of accepted MCP access tokens.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]struct{}
}

// NewTokenStore creates a token store seeded with the given tokens.
// Empty strings are ignored.
func NewTokenStore(tokens []string) *TokenStore {
	s := &TokenStore{tokens: make(map[string]struct{})}
	for _, t := range tokens {
		if t != "" {
			s.tokens[t] = struct{}{}
		}
	}
	return s
}

// CreateToken generates and registers a new random token.
// Returns the token string that should be included in MCP URLs.
func (s *TokenStore) CreateToken() string {
	token := uuid.New().String()

	s.mu.Lock()
	s.tokens[token] = struct{}{}
	s.mu.Unlock()

	return token
}

// Valid reports whether the token is accepted.
func (s *TokenStore) Valid(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tokens[token]
	return ok
}

// InvalidateToken removes a token from the store.
func (s *TokenStore) InvalidateToken(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// TokenCount returns the number of active tokens (for monitoring).
func (s *TokenStore) TokenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}
