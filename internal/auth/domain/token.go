package domain

import "time"

// Grant types understood by the dispatcher.
const (
	GrantClientCredentials = "client_credentials"
	GrantPassword          = "password"
	GrantRefreshToken      = "refresh_token"
)

// Authentication method references written to the amr claim.
const (
	AMRClient   = "client"
	AMRPassword = "pwd"
)

// TokenRequest is one call to the token endpoint after form decoding and
// client-authentication extraction.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	RefreshToken string
	Scopes       []string
}

// TokenResponse is the successful outcome of a grant. Optional tokens are
// empty when not issued.
type TokenResponse struct {
	AccessToken  string
	TokenType    string
	ExpiresIn    time.Duration
	Scopes       []string
	IDToken      string
	RefreshToken string
}

// RefreshToken is the stored side of an opaque refresh token. Only the
// fingerprint of the token is persisted.
type RefreshToken struct {
	ID        string
	TokenHash string
	UserID    string
	ClientID  string // empty when issued to an anonymous client
	Scopes    []string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Usable reports whether the token can still be redeemed at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
