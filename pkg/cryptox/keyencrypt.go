package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
)

var ErrCiphertextTooShort = errors.New("cryptox: ciphertext too short")

// KeyCipher seals signing-key material at rest with AES-256-GCM. The AES
// key is SHA-256 of the configured master key material.
type KeyCipher struct {
	aead cipher.AEAD
}

// NewKeyCipher derives a KeyCipher from arbitrary master key material.
func NewKeyCipher(material []byte) (*KeyCipher, error) {
	if len(material) == 0 {
		return nil, errors.New("cryptox: empty master key")
	}

	sum := sha256.Sum256(material)
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, fmt.Errorf("cryptox: aes: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptox: gcm: %w", err)
	}
	return &KeyCipher{aead: aead}, nil
}

// LoadKeyCipher reads master key material from path. An empty path yields a
// cipher over a random key, which only makes sense for ephemeral key storage.
func LoadKeyCipher(path string) (*KeyCipher, error) {
	if path == "" {
		material := make([]byte, 32)
		if _, err := rand.Read(material); err != nil {
			return nil, fmt.Errorf("cryptox: generate master key: %w", err)
		}
		return NewKeyCipher(material)
	}

	material, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cryptox: read master key: %w", err)
	}
	return NewKeyCipher(material)
}

// Seal encrypts plaintext as nonce || ciphertext || tag.
func (c *KeyCipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("cryptox: nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal and authenticates the payload.
func (c *KeyCipher) Open(sealed []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(sealed) < n {
		return nil, ErrCiphertextTooShort
	}

	plaintext, err := c.aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("cryptox: open sealed key: %w", err)
	}
	return plaintext, nil
}
