package service

import (
	"fmt"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/aixasz/AixaszSampleProject/pkg/jwtx"
)

// multiValued claims are always written as JSON arrays, even with a single
// value, so verifiers can rely on one shape.
var multiValued = map[string]bool{
	domain.ClaimRole: true,
}

// IssuedToken is a signed bearer string and its expiry.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// TokenIssuer turns a ClaimsSet into signed JWTs using the current key of
// the ring.
type TokenIssuer struct {
	Keys        jwtx.KeySource
	Issuer      string
	Audience    string
	AccessTTL   time.Duration
	IdentityTTL time.Duration

	// Now overrides the clock. Tests only.
	Now func() time.Time
}

func (i *TokenIssuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

// IssueAccess signs an access token carrying the protocol claims and every
// access-destined claim of cs.
func (i *TokenIssuer) IssueAccess(cs *domain.ClaimsSet) (IssuedToken, error) {
	c := jwtx.NewClaims(i.Issuer, cs.Subject, []string{i.Audience}, i.AccessTTL, i.now())
	c.Scope = domain.FormatScope(cs.Scopes)
	c.ClientID = cs.ClientID
	if cs.AMR != "" {
		c.AMR = []string{cs.AMR}
	}
	return i.sign(jwtx.TypeAccessToken, c, cs.For(domain.DestAccess))
}

// IssueIdentity signs an identity token for the client that made the
// request. Anonymous requests get the issuer as audience.
func (i *TokenIssuer) IssueIdentity(cs *domain.ClaimsSet) (IssuedToken, error) {
	aud := cs.ClientID
	if aud == "" {
		aud = i.Issuer
	}
	c := jwtx.NewClaims(i.Issuer, cs.Subject, []string{aud}, i.IdentityTTL, i.now())
	return i.sign(jwtx.TypeIdentityToken, c, cs.For(domain.DestIdentity))
}

func (i *TokenIssuer) sign(typ string, c jwtx.Claims, claims []domain.Claim) (IssuedToken, error) {
	for _, claim := range claims {
		var value any = claim.Values
		if !multiValued[claim.Name] && len(claim.Values) == 1 {
			value = claim.Values[0]
		}
		if err := c.Set(claim.Name, value); err != nil {
			return IssuedToken{}, fmt.Errorf("%w: %v", ErrSigningFailure, err)
		}
	}

	signer, err := i.Keys.CurrentSigningKey()
	if err != nil {
		return IssuedToken{}, fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}
	token, err := signer.Sign(typ, c)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}
	return IssuedToken{Token: token, ID: c.ID, ExpiresAt: c.ExpiresAt.Time}, nil
}
