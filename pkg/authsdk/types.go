package authsdk

import (
	"github.com/aixasz/AixaszSampleProject/pkg/jwtx"
)

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse is the token endpoint success body (RFC 6749 section 5.1).
type TokenResponse struct {
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int `json:"expires_in"`

	Scope string `json:"scope,omitempty"`

	// IDToken is only present for password and refresh grants that carry
	// the openid scope.
	IDToken string `json:"id_token,omitempty"`

	// RefreshToken is only present when offline_access was granted.
	RefreshToken string `json:"refresh_token,omitempty"`
}

// IntrospectionResponse is the RFC 7662 introspection body. An inactive
// token yields only Active=false.
type IntrospectionResponse struct {
	Active bool `json:"active"`

	Scope     string   `json:"scope,omitempty"`
	ClientID  string   `json:"client_id,omitempty"`
	Username  string   `json:"username,omitempty"`
	TokenType string   `json:"token_type,omitempty"`
	Exp       int64    `json:"exp,omitempty"`
	Iat       int64    `json:"iat,omitempty"`
	Nbf       int64    `json:"nbf,omitempty"`
	Sub       string   `json:"sub,omitempty"`
	Aud       []string `json:"aud,omitempty"`
	Iss       string   `json:"iss,omitempty"`
	Jti       string   `json:"jti,omitempty"`
	AMR       []string `json:"amr,omitempty"`
}

// UserInfoResponse is the OpenID Connect userinfo body. Fields appear
// according to the scopes on the access token.
type UserInfoResponse struct {
	Sub   string   `json:"sub"`
	Name  string   `json:"name,omitempty"`
	Email string   `json:"email,omitempty"`
	Role  []string `json:"role,omitempty"`
}

// VersionResponse is returned by the protected sample API endpoints.
type VersionResponse struct {
	Version string `json:"version"`
}

// DiscoveryDocument is the subset of OpenID Provider Metadata the server
// publishes.
type DiscoveryDocument struct {
	Issuer                           string   `json:"issuer"`
	TokenEndpoint                    string   `json:"token_endpoint"`
	IntrospectionEndpoint            string   `json:"introspection_endpoint"`
	RevocationEndpoint               string   `json:"revocation_endpoint"`
	UserinfoEndpoint                 string   `json:"userinfo_endpoint"`
	JWKSURI                          string   `json:"jwks_uri"`
	GrantTypesSupported              []string `json:"grant_types_supported"`
	ScopesSupported                  []string `json:"scopes_supported"`
	ClaimsSupported                  []string `json:"claims_supported"`
	TokenEndpointAuthMethods         []string `json:"token_endpoint_auth_methods_supported"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported"`
	ResponseTypesSupported           []string `json:"response_types_supported"`
	SubjectTypesSupported            []string `json:"subject_types_supported"`
}

// JWKSResponse contains the JSON Web Key Set.
type JWKSResponse jwtx.JWKS

// ============================================================================
// Client Administration
// ============================================================================

// CreateClientRequest registers a client. An empty ClientID asks the server
// to generate one. Confidential clients get a generated secret.
type CreateClientRequest struct {
	ClientID     string   `json:"client_id,omitempty"`
	DisplayName  string   `json:"display_name"`
	Confidential bool     `json:"confidential"`
	GrantTypes   []string `json:"grant_types"`
	Scopes       []string `json:"scopes"`
}

// ClientSecretResponse carries a plaintext secret. It is only ever
// returned once, at creation or rotation.
type ClientSecretResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret,omitempty"`
}

type ClientInfo struct {
	ClientID     string   `json:"client_id"`
	DisplayName  string   `json:"display_name"`
	Confidential bool     `json:"confidential"`
	GrantTypes   []string `json:"grant_types"`
	Scopes       []string `json:"scopes"`
	CreatedAt    string   `json:"created_at"`
}

type ListClientsResponse struct {
	Clients []ClientInfo `json:"clients"`
}

// ============================================================================
// User Administration
// ============================================================================

type CreateUserRequest struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

// UpdateUserRequest is a JSON merge patch: nil fields are left untouched.
type UpdateUserRequest struct {
	Username *string   `json:"username,omitempty"`
	Email    *string   `json:"email,omitempty"`
	Roles    *[]string `json:"roles,omitempty"`
}

type SetPasswordRequest struct {
	Password string `json:"password"`
}

type UserDetails struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

type ListUsersResponse struct {
	Users []UserDetails `json:"users"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz. Checks is only set by
// /readyz.
type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime,omitempty"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// ============================================================================
// Key Rotation Types
// ============================================================================

// SigningKeyInfo describes a key in the ring. State is "current",
// "previous" or "retired".
type SigningKeyInfo struct {
	Kid       string  `json:"kid"`
	Algorithm string  `json:"algorithm"`
	State     string  `json:"state"`
	CreatedAt string  `json:"created_at"`
	RetiredAt *string `json:"retired_at,omitempty"`
}

type ListKeysResponse struct {
	Keys []SigningKeyInfo `json:"keys"`
}

// RotateKeyResponse reports the new current key and the kids that fell
// out of the verification window.
type RotateKeyResponse struct {
	Current SigningKeyInfo `json:"current"`
	Dropped []string       `json:"dropped,omitempty"`
}
