package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types written to the "typ" header.
const (
	TypeAccessToken   = "at+jwt"
	TypeIdentityToken = "JWT"
)

// Authentication method references carried in the "amr" claim.
const (
	AMRClient   = "client" // client_credentials, no end user
	AMRPassword = "pwd"
)

// reservedClaims are serialised from typed fields and can never be set
// through Extra.
var reservedClaims = map[string]struct{}{
	"iss": {}, "sub": {}, "aud": {}, "exp": {}, "nbf": {}, "iat": {}, "jti": {},
	"scope": {}, "client_id": {}, "amr": {},
}

// Claims is the payload of every token the server signs. Registered and
// protocol claims are typed; identity claims such as email, name or role
// travel in Extra and are flattened into the top-level JSON object.
type Claims struct {
	jwt.RegisteredClaims

	// Scope is the space separated list of granted scopes.
	Scope string `json:"scope,omitempty"`

	// ClientID identifies the client the token was issued to.
	ClientID string `json:"client_id,omitempty"`

	// AMR records how the subject authenticated: ["client"] or ["pwd"].
	AMR []string `json:"amr,omitempty"`

	Extra map[string]any `json:"-"`
}

// NewClaims builds the registered part of a token valid for ttl from now.
func NewClaims(issuer, subject string, audience []string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// Set stores an extra claim. Reserved names are rejected.
func (c *Claims) Set(name string, value any) error {
	if _, ok := reservedClaims[name]; ok {
		return fmt.Errorf("jwtx: claim %q is reserved", name)
	}
	if c.Extra == nil {
		c.Extra = make(map[string]any)
	}
	c.Extra[name] = value
	return nil
}

// String returns a single-valued extra claim, or "" when absent.
func (c Claims) String(name string) string {
	s, _ := c.Extra[name].(string)
	return s
}

// Strings returns a multi-valued extra claim. A single string value is
// returned as a one-element slice.
func (c Claims) Strings(name string) []string {
	switch v := c.Extra[name].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Scopes splits the scope claim.
func (c Claims) Scopes() []string {
	return strings.Fields(c.Scope)
}

func (c Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes(), scope)
}

func (c Claims) HasAMR(method string) bool {
	return slices.Contains(c.AMR, method)
}

// MarshalJSON writes the typed claims and Extra as one flat object.
func (c Claims) MarshalJSON() ([]byte, error) {
	type plain Claims
	base, err := json.Marshal(plain(c))
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return base, nil
	}

	merged := make(map[string]json.RawMessage, len(c.Extra)+8)
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for name, value := range c.Extra {
		if _, ok := reservedClaims[name]; ok {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("jwtx: marshal claim %q: %w", name, err)
		}
		merged[name] = raw
	}
	return json.Marshal(merged)
}

// UnmarshalJSON fills the typed claims and collects everything else into
// Extra.
func (c *Claims) UnmarshalJSON(data []byte) error {
	type plain Claims
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for name := range reservedClaims {
		delete(all, name)
	}

	*c = Claims(p)
	c.Extra = nil
	if len(all) > 0 {
		c.Extra = make(map[string]any, len(all))
		maps.Copy(c.Extra, all)
	}
	return nil
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiryWithLeeway checks exp and nbf against now, allowing for
// clock skew.
func (c *Claims) ValidateExpiryWithLeeway(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}
	if now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
