package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient talks to the token server. It covers the unauthenticated
// endpoints and creates Sessions for everything that needs a bearer token.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// CheckScopes makes Sessions refuse calls locally when the granted
	// scopes obviously cannot satisfy the endpoint. Disable it in tests
	// that exercise server-side scope checks.
	CheckScopes bool
}

// NewSDKClient creates a client with scope checking enabled.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL:     strings.TrimSuffix(baseURL, "/"),
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
		CheckScopes: true,
	}
}

// AuthenticateWithClientCredentials creates a machine-to-machine session.
func (c *SDKClient) AuthenticateWithClientCredentials(
	ctx context.Context,
	clientID, clientSecret string,
	scopes []string,
) (*Session, error) {
	tok, err := c.ClientCredentialsGrant(ctx, clientID, clientSecret, scopes)
	if err != nil {
		return nil, err
	}
	return newSession(c, clientID, "", tok), nil
}

// AuthenticateWithPassword creates a session for an end user. clientSecret
// may be empty for clients that only identify themselves.
func (c *SDKClient) AuthenticateWithPassword(
	ctx context.Context,
	clientID, clientSecret, username, password string,
	scopes []string,
) (*Session, error) {
	tok, err := c.PasswordGrant(ctx, clientID, clientSecret, username, password, scopes)
	if err != nil {
		return nil, err
	}
	return newSession(c, clientID, clientSecret, tok), nil
}

// NewSessionFromTokens wraps tokens obtained elsewhere. The session still
// refreshes on expiry when it holds a refresh token.
func (c *SDKClient) NewSessionFromTokens(clientID, clientSecret string, tok *TokenResponse) *Session {
	return newSession(c, clientID, clientSecret, tok)
}
