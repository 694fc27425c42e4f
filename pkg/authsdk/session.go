package authsdk

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// ErrNoRefreshToken is returned when the access token has expired and the
// session was not granted offline_access.
var ErrNoRefreshToken = errors.New("authsdk: access token expired and no refresh token available")

// expiryBuffer refreshes a little before the server would reject the token.
const expiryBuffer = 30 * time.Second

// Session is an authenticated caller. Methods refresh the access token
// automatically when it has expired and a refresh token is held.
type Session struct {
	client       *SDKClient
	clientID     string
	clientSecret string

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	idToken      string
	expiresAt    time.Time
	scopes       []string
}

func newSession(client *SDKClient, clientID, clientSecret string, tok *TokenResponse) *Session {
	s := &Session{client: client, clientID: clientID, clientSecret: clientSecret}
	s.apply(tok)
	return s
}

// apply must be called with mu held for writing, or before the session is
// shared.
func (s *Session) apply(tok *TokenResponse) {
	s.accessToken = tok.AccessToken
	s.refreshToken = tok.RefreshToken
	s.idToken = tok.IDToken
	s.expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - expiryBuffer)
	s.scopes = strings.Fields(tok.Scope)
}

func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	return s.refresh(ctx, false)
}

// Refresh redeems the refresh token now, regardless of expiry.
func (s *Session) Refresh(ctx context.Context) error {
	_, err := s.refresh(ctx, true)
	return err
}

func (s *Session) refresh(ctx context.Context, force bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited.
	if !force && time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}
	if s.refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	tok, err := s.client.RefreshGrant(ctx, s.clientID, s.clientSecret, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	s.apply(tok)
	return s.accessToken, nil
}

// Revoke revokes the refresh token, ending the session.
func (s *Session) Revoke(ctx context.Context) error {
	s.mu.RLock()
	rt := s.refreshToken
	s.mu.RUnlock()

	if rt == "" {
		return ErrNoRefreshToken
	}
	return s.client.RevokeToken(ctx, s.clientID, s.clientSecret, rt)
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

func (s *Session) IDToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idToken
}

// Scopes returns a copy of the granted scopes.
func (s *Session) Scopes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.scopes)
}

func (s *Session) HasScope(scope string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.scopes, scope)
}

// checkScopes requires at least one of the given scopes when scope
// checking is enabled.
func (s *Session) checkScopes(anyOf ...string) error {
	if !s.client.CheckScopes || len(anyOf) == 0 {
		return nil
	}
	for _, scope := range anyOf {
		if s.HasScope(scope) {
			return nil
		}
	}
	return fmt.Errorf("authsdk: missing required scope: %s", strings.Join(anyOf, " or "))
}
