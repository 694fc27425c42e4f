package cryptox

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// Key kinds understood by GenerateKey. They line up with the JWS algorithm
// names the keys are used for.
const (
	KeyEd25519 = "EdDSA"
	KeyP256    = "ES256"
	KeyRSA     = "RS256"
)

// MinRSABits is the smallest RSA modulus GenerateKey will produce.
const MinRSABits = 2048

// GenerateKey creates a private key of the given kind and returns it as a
// PKCS8 "PRIVATE KEY" PEM block. rsaBits is only read for KeyRSA.
func GenerateKey(kind string, rsaBits int) ([]byte, error) {
	var (
		key crypto.Signer
		err error
	)

	switch kind {
	case KeyEd25519:
		_, key, err = ed25519.GenerateKey(rand.Reader)
	case KeyP256:
		key, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case KeyRSA:
		if rsaBits == 0 {
			rsaBits = MinRSABits
		}
		if rsaBits < MinRSABits {
			return nil, fmt.Errorf("cryptox: RSA key size must be at least %d bits", MinRSABits)
		}
		key, err = rsa.GenerateKey(rand.Reader, rsaBits)
	default:
		return nil, fmt.Errorf("cryptox: unsupported key kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("cryptox: generate %s key: %w", kind, err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: marshal PKCS8: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// ParsePrivateKey decodes a PKCS8 PEM block into a crypto.Signer.
func ParsePrivateKey(pemKey []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("cryptox: no PEM block found")
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("cryptox: expected PRIVATE KEY block, got %q", block.Type)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("cryptox: parse PKCS8: %w", err)
	}

	signer, ok := parsed.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("cryptox: %T cannot sign", parsed)
	}
	return signer, nil
}
