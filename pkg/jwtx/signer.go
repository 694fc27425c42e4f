package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"

	"github.com/aixasz/AixaszSampleProject/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// Supported JWT signing algorithms
const (
	AlgorithmRS256 = "RS256"
	AlgorithmES256 = "ES256"
	AlgorithmEdDSA = "EdDSA"
)

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	KID() string

	// Sign serialises claims as a compact JWS with the given "typ" header.
	Sign(typ string, claims Claims) (string, error)

	Public() crypto.PublicKey
	PublicJWK() JWK
}

type keySigner struct {
	kid    string
	alg    string
	method jwt.SigningMethod
	key    crypto.Signer
	jwk    JWK
}

// NewSigner wraps a PKCS8 PEM private key. The key type must match alg.
func NewSigner(alg, kid string, pemKey []byte) (Signer, error) {
	if kid == "" {
		return nil, fmt.Errorf("jwtx: kid is required")
	}

	key, err := cryptox.ParsePrivateKey(pemKey)
	if err != nil {
		return nil, err
	}

	method, err := methodFor(alg)
	if err != nil {
		return nil, err
	}
	if err := checkKeyType(alg, key.Public()); err != nil {
		return nil, err
	}

	jwk, err := NewJWK(kid, alg, key.Public())
	if err != nil {
		return nil, err
	}

	return &keySigner{kid: kid, alg: alg, method: method, key: key, jwk: jwk}, nil
}

// GenerateSigner creates a fresh key for alg and returns the signer together
// with its PEM so callers can persist it.
func GenerateSigner(alg, kid string, rsaBits int) (Signer, []byte, error) {
	pemKey, err := cryptox.GenerateKey(alg, rsaBits)
	if err != nil {
		return nil, nil, err
	}
	s, err := NewSigner(alg, kid, pemKey)
	if err != nil {
		return nil, nil, err
	}
	return s, pemKey, nil
}

func (s *keySigner) Alg() string              { return s.alg }
func (s *keySigner) KID() string              { return s.kid }
func (s *keySigner) Public() crypto.PublicKey { return s.key.Public() }
func (s *keySigner) PublicJWK() JWK           { return s.jwk }

func (s *keySigner) Sign(typ string, claims Claims) (string, error) {
	tok := jwt.NewWithClaims(s.method, claims)
	tok.Header["kid"] = s.kid
	if typ != "" {
		tok.Header["typ"] = typ
	}

	signed, err := tok.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign %s: %w", s.alg, err)
	}
	return signed, nil
}

func methodFor(alg string) (jwt.SigningMethod, error) {
	switch alg {
	case AlgorithmEdDSA:
		return jwt.SigningMethodEdDSA, nil
	case AlgorithmES256:
		return jwt.SigningMethodES256, nil
	case AlgorithmRS256:
		return jwt.SigningMethodRS256, nil
	}
	return nil, fmt.Errorf("jwtx: unsupported algorithm %q (supported: RS256, ES256, EdDSA)", alg)
}

func checkKeyType(alg string, pub crypto.PublicKey) error {
	ok := false
	switch k := pub.(type) {
	case ed25519.PublicKey:
		ok = alg == AlgorithmEdDSA
	case *ecdsa.PublicKey:
		ok = alg == AlgorithmES256 && k.Curve == elliptic.P256()
	case *rsa.PublicKey:
		ok = alg == AlgorithmRS256 && k.N.BitLen() >= cryptox.MinRSABits
	}
	if !ok {
		return fmt.Errorf("jwtx: %T key cannot be used for %s", pub, alg)
	}
	return nil
}
