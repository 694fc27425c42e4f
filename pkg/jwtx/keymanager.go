package jwtx

import (
	"crypto"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/aixasz/AixaszSampleProject/pkg/cryptox"
)

var (
	ErrNoSigningKey   = errors.New("jwtx: no current signing key")
	ErrRetireCurrent  = errors.New("jwtx: cannot retire the current signing key")
	ErrKeyNotFound    = errors.New("jwtx: signing key not found")
	ErrDuplicateKeyID = errors.New("jwtx: duplicate kid")
)

// KeySource is the issuer's view of the key ring.
type KeySource interface {
	CurrentSigningKey() (Signer, error)
	PreviousSigningKeys() []Signer
}

// KeyResolver finds the verification key for a kid.
type KeyResolver interface {
	VerificationKey(kid string) (alg string, pub crypto.PublicKey, err error)
}

// ring is an immutable snapshot. Readers load it once per operation and
// never see a half-applied rotation.
type ring struct {
	current  Signer
	previous []Signer // newest first
}

// KeyManager holds the current signing key and the previous keys that are
// still accepted for verification. Rotation swaps the whole ring atomically;
// writers are serialised by mu.
type KeyManager struct {
	algorithm   string
	rsaBits     int
	maxPrevious int

	mu   sync.Mutex
	ring atomic.Pointer[ring]
}

// KeyManagerOptions configures a KeyManager.
type KeyManagerOptions struct {
	// Algorithm for generated keys: "RS256", "ES256" or "EdDSA".
	Algorithm string

	// RSABits is only used for RS256. Defaults to 2048.
	RSABits int

	// MaxPrevious bounds how many demoted keys stay verifiable. Values
	// below 1 are raised to 1 so the immediately previous key survives a
	// rotation.
	MaxPrevious int
}

// NewKeyManager returns an empty manager. Load or Rotate must run before it
// can sign.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if _, err := methodFor(opts.Algorithm); err != nil {
		return nil, err
	}
	maxPrev := opts.MaxPrevious
	if maxPrev < 1 {
		maxPrev = 1
	}

	km := &KeyManager{algorithm: opts.Algorithm, rsaBits: opts.RSABits, maxPrevious: maxPrev}
	km.ring.Store(&ring{})
	return km, nil
}

// NewEphemeralKeyManager creates a manager with one freshly generated key
// that only lives in memory. Tokens stop verifying on restart.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	km, err := NewKeyManager(opts)
	if err != nil {
		return nil, err
	}
	s, _, err := km.Generate()
	if err != nil {
		return nil, err
	}
	km.Rotate(s)
	return km, nil
}

// Generate creates a new signer for the manager's algorithm without
// installing it. The PEM is returned for persistence.
func (km *KeyManager) Generate() (Signer, []byte, error) {
	kid, err := NewKeyID()
	if err != nil {
		return nil, nil, err
	}
	return GenerateSigner(km.algorithm, kid, km.rsaBits)
}

// NewKeyID returns a random, URL-safe key identifier.
func NewKeyID() (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", fmt.Errorf("jwtx: generate key ID: %w", err)
	}
	return "key-" + token, nil
}

// Load replaces the ring wholesale, typically from persisted keys at start.
func (km *KeyManager) Load(current Signer, previous []Signer) error {
	seen := make(map[string]struct{}, len(previous)+1)
	all := previous
	if current != nil {
		all = append([]Signer{current}, previous...)
	}
	for _, s := range all {
		if _, dup := seen[s.KID()]; dup {
			return fmt.Errorf("%w %q", ErrDuplicateKeyID, s.KID())
		}
		seen[s.KID()] = struct{}{}
	}

	km.mu.Lock()
	defer km.mu.Unlock()
	km.ring.Store(&ring{current: current, previous: slices.Clone(previous)})
	return nil
}

// Rotate makes next the current key and demotes the old current key to
// previous. Keys pushed past MaxPrevious are dropped and returned.
func (km *KeyManager) Rotate(next Signer) (dropped []Signer) {
	km.mu.Lock()
	defer km.mu.Unlock()

	old := km.ring.Load()
	prev := make([]Signer, 0, len(old.previous)+1)
	if old.current != nil {
		prev = append(prev, old.current)
	}
	prev = append(prev, old.previous...)

	if len(prev) > km.maxPrevious {
		dropped = slices.Clone(prev[km.maxPrevious:])
		prev = prev[:km.maxPrevious]
	}

	km.ring.Store(&ring{current: next, previous: prev})
	return dropped
}

// Retire removes a previous key from verification.
func (km *KeyManager) Retire(kid string) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	old := km.ring.Load()
	if old.current != nil && old.current.KID() == kid {
		return ErrRetireCurrent
	}

	i := slices.IndexFunc(old.previous, func(s Signer) bool { return s.KID() == kid })
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, kid)
	}

	prev := slices.Delete(slices.Clone(old.previous), i, i+1)
	km.ring.Store(&ring{current: old.current, previous: prev})
	return nil
}

func (km *KeyManager) CurrentSigningKey() (Signer, error) {
	cur := km.ring.Load().current
	if cur == nil {
		return nil, ErrNoSigningKey
	}
	return cur, nil
}

func (km *KeyManager) PreviousSigningKeys() []Signer {
	return slices.Clone(km.ring.Load().previous)
}

// Lookup finds a signer by kid among the current and previous keys.
func (km *KeyManager) Lookup(kid string) (Signer, bool) {
	r := km.ring.Load()
	if r.current != nil && r.current.KID() == kid {
		return r.current, true
	}
	for _, s := range r.previous {
		if s.KID() == kid {
			return s, true
		}
	}
	return nil, false
}

func (km *KeyManager) VerificationKey(kid string) (string, crypto.PublicKey, error) {
	s, ok := km.Lookup(kid)
	if !ok {
		return "", nil, ErrUnknownKID
	}
	return s.Alg(), s.Public(), nil
}

// JWKS publishes the current key followed by every previous key.
func (km *KeyManager) JWKS() JWKS {
	r := km.ring.Load()
	set := JWKS{Keys: make([]JWK, 0, len(r.previous)+1)}
	if r.current != nil {
		set.Keys = append(set.Keys, r.current.PublicJWK())
	}
	for _, s := range r.previous {
		set.Keys = append(set.Keys, s.PublicJWK())
	}
	return set
}

// Algorithm returns the signing algorithm being used.
func (km *KeyManager) Algorithm() string {
	return km.algorithm
}

// IsReady reports whether a current signing key is installed.
func (km *KeyManager) IsReady() bool {
	return km.ring.Load().current != nil
}
