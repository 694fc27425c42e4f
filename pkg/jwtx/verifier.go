package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// VerifyOptions captures common expectations used by verifiers.
type VerifyOptions struct {
	// Issuer the token must have (claims.iss). Empty means "don't care".
	Issuer string

	// Audience values the token must contain (claims.aud). Empty means "don't care".
	Audience []string

	// Type the "typ" header must carry. Empty means "don't care".
	Type string

	// Leeway allows small clock skew when validating exp/nbf.
	Leeway time.Duration

	// Now overrides the clock. Tests only.
	Now func() time.Time
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrTokenType   = errors.New("jwtx: unexpected token type")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

var validMethods = []string{AlgorithmEdDSA, AlgorithmES256, AlgorithmRS256}

// TokenVerifier checks signatures against keys found by kid, so tokens
// signed by the current key and by any still-published previous key verify.
type TokenVerifier struct {
	keys KeyResolver
	opts VerifyOptions
}

func NewVerifier(keys KeyResolver, opts VerifyOptions) *TokenVerifier {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &TokenVerifier{keys: keys, opts: opts}
}

func (v *TokenVerifier) Verify(token string) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods(validMethods),
		jwt.WithoutClaimsValidation(),
	)

	_, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrUnknownKID
		}
		alg, pub, err := v.keys.VerificationKey(kid)
		if err != nil {
			return nil, err
		}
		if alg != "" && t.Method.Alg() != alg {
			return nil, ErrAlgMismatch
		}
		if v.opts.Type != "" {
			if typ, _ := t.Header["typ"].(string); typ != v.opts.Type {
				return nil, ErrTokenType
			}
		}
		return pub, nil
	})
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	if err := claims.ValidateIssuer(v.opts.Issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(v.opts.Audience); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiryWithLeeway(v.opts.Now(), v.opts.Leeway); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

func mapParseError(err error) error {
	for _, known := range []error{ErrUnknownKID, ErrAlgMismatch, ErrTokenType} {
		if errors.Is(err, known) {
			return known
		}
	}
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrAlgMismatch
	}
	return ErrMalformed
}
