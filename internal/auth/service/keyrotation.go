package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/audit"
	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/aixasz/AixaszSampleProject/internal/auth/metrics"
	"github.com/aixasz/AixaszSampleProject/internal/auth/store"
	"github.com/aixasz/AixaszSampleProject/pkg/cryptox"
	"github.com/aixasz/AixaszSampleProject/pkg/jwtx"
	"github.com/aixasz/AixaszSampleProject/pkg/slogx"
)

// DefaultGracePeriod is how long a demoted key stays published when
// KeyRotationService.GracePeriod is unset.
const DefaultGracePeriod = 24 * time.Hour

var ErrKeyCipherRequired = errors.New("persistent signing keys need a master key")

// KeyRotationService rotates and retires signing keys.
//
// In ephemeral mode (Store == nil) keys live only in the KeyManager and are
// lost on restart. In persistent mode private keys are sealed with Cipher
// and stored, and every change is written to the store before the
// in-memory ring is swapped.
type KeyRotationService struct {
	Store       store.Store
	Keys        *jwtx.KeyManager
	Cipher      *cryptox.KeyCipher
	GracePeriod time.Duration
	Audit       audit.Publisher

	// Now overrides the clock. Tests only.
	Now func() time.Time

	mu sync.Mutex
}

// RotationResult is the new current key and the kids dropped from the
// ring because it was full.
type RotationResult struct {
	Current domain.SigningKey
	Dropped []string
}

func (s *KeyRotationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *KeyRotationService) grace() time.Duration {
	if s.GracePeriod > 0 {
		return s.GracePeriod
	}
	return DefaultGracePeriod
}

func (s *KeyRotationService) persistent() bool {
	return s.Store != nil
}

// LoadKeys installs the persisted ring into the KeyManager. When no current
// key is stored one is generated. Previous keys past their grace period
// are skipped.
func (s *KeyRotationService) LoadKeys(ctx context.Context) error {
	if !s.persistent() {
		return nil
	}
	if s.Cipher == nil {
		return ErrKeyCipherRequired
	}
	l := slogx.FromContext(ctx)

	keys, err := s.Store.SigningKeys().ListSigningKeys(ctx)
	if err != nil {
		return fmt.Errorf("list signing keys: %w", err)
	}

	now := s.now()
	var current jwtx.Signer
	var previous []jwtx.Signer
	for _, k := range keys {
		if k.State == domain.KeyStatePrevious && k.IsExpired(now) {
			continue
		}
		signer, err := s.openKey(k)
		if err != nil {
			return err
		}
		if k.State == domain.KeyStateCurrent {
			current = signer
		} else {
			previous = append(previous, signer)
		}
	}

	if err := s.Keys.Load(current, previous); err != nil {
		return err
	}
	if current == nil {
		l.Info("no signing key stored, generating one")
		_, err := s.Rotate(ctx)
		return err
	}

	metrics.SetKeyRing(1, len(previous))
	l.Info("signing keys loaded", "kid", current.KID(), "previous", len(previous))
	return nil
}

func (s *KeyRotationService) openKey(k domain.SigningKey) (jwtx.Signer, error) {
	pem, err := s.Cipher.Open(k.PrivateKeyEncrypted)
	if err != nil {
		return nil, fmt.Errorf("open signing key %q: %w", k.Kid, err)
	}
	signer, err := jwtx.NewSigner(k.Algorithm, k.Kid, pem)
	if err != nil {
		return nil, fmt.Errorf("load signing key %q: %w", k.Kid, err)
	}
	return signer, nil
}

// Rotate generates a key, makes it current and demotes the old current key
// to previous. Tokens signed by the old key keep verifying until it
// leaves the ring.
func (s *KeyRotationService) Rotate(ctx context.Context) (RotationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := slogx.FromContext(ctx)

	signer, pem, err := s.Keys.Generate()
	if err != nil {
		return RotationResult{}, fmt.Errorf("generate signing key: %w", err)
	}

	now := s.now()
	key := domain.SigningKey{
		Kid:       signer.KID(),
		Algorithm: signer.Alg(),
		State:     domain.KeyStateCurrent,
		CreatedAt: now,
	}

	if s.persistent() {
		if s.Cipher == nil {
			return RotationResult{}, ErrKeyCipherRequired
		}
		key.PrivateKeyEncrypted, err = s.Cipher.Seal(pem)
		if err != nil {
			return RotationResult{}, fmt.Errorf("seal signing key: %w", err)
		}

		err = s.Store.WithTx(ctx, func(tx store.Tx) error {
			if cur, err := s.Keys.CurrentSigningKey(); err == nil {
				err := tx.SigningKeys().DemoteSigningKey(ctx, cur.KID(), now.Add(s.grace()))
				if err != nil && !errors.Is(err, store.ErrNotFound) {
					return err
				}
			}
			return tx.SigningKeys().CreateSigningKey(ctx, key)
		})
		if err != nil {
			return RotationResult{}, fmt.Errorf("store signing key: %w", err)
		}
	}

	dropped := s.Keys.Rotate(signer)

	res := RotationResult{Current: key, Dropped: make([]string, 0, len(dropped))}
	for _, d := range dropped {
		res.Dropped = append(res.Dropped, d.KID())
		if s.persistent() {
			if err := s.Store.SigningKeys().RetireSigningKey(ctx, d.KID(), now); err != nil && !errors.Is(err, store.ErrNotFound) {
				l.Warn("failed to retire dropped signing key", slogx.Err(err), "kid", d.KID())
			}
		}
	}

	metrics.SetKeyRing(1, len(s.Keys.PreviousSigningKeys()))
	if s.Audit != nil {
		s.Audit.Publish(ctx, audit.Event{Type: audit.KeyRotated, Reason: key.Kid})
	}
	l.Info("signing key rotated", "kid", key.Kid, "algorithm", key.Algorithm, "dropped", res.Dropped)
	return res, nil
}

// ListKeys returns every known key. Ephemeral mode only knows the ring.
func (s *KeyRotationService) ListKeys(ctx context.Context) ([]domain.SigningKey, error) {
	if s.persistent() {
		keys, err := s.Store.SigningKeys().ListAllSigningKeys(ctx)
		return keys, adminError(err)
	}

	var keys []domain.SigningKey
	if cur, err := s.Keys.CurrentSigningKey(); err == nil {
		keys = append(keys, domain.SigningKey{Kid: cur.KID(), Algorithm: cur.Alg(), State: domain.KeyStateCurrent})
	}
	for _, p := range s.Keys.PreviousSigningKeys() {
		keys = append(keys, domain.SigningKey{Kid: p.KID(), Algorithm: p.Alg(), State: domain.KeyStatePrevious})
	}
	return keys, nil
}

// RetireKey withdraws a previous key from verification. The current key
// cannot be retired; rotate first.
func (s *KeyRotationService) RetireKey(ctx context.Context, kid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persistent() {
		k, err := s.Store.SigningKeys().GetSigningKeyByKid(ctx, kid)
		if err != nil {
			return adminError(err)
		}
		switch k.State {
		case domain.KeyStateCurrent:
			return fmt.Errorf("%w: cannot retire the current signing key", ErrInvalidInput)
		case domain.KeyStateRetired:
			return fmt.Errorf("%w: key %q is already retired", ErrInvalidInput, kid)
		}
		if err := s.Store.SigningKeys().RetireSigningKey(ctx, kid, s.now()); err != nil {
			return adminError(err)
		}
	}

	err := s.Keys.Retire(kid)
	switch {
	case errors.Is(err, jwtx.ErrRetireCurrent):
		return fmt.Errorf("%w: cannot retire the current signing key", ErrInvalidInput)
	case errors.Is(err, jwtx.ErrKeyNotFound):
		if !s.persistent() {
			return ErrNotFound
		}
	case err != nil:
		return err
	}

	metrics.SetKeyRing(1, len(s.Keys.PreviousSigningKeys()))
	slogx.FromContext(ctx).Info("signing key retired", "kid", kid)
	return nil
}

// PruneExpired drops previous keys whose grace period has ended from the
// in-memory ring. Only persistent keys carry an expiry.
func (s *KeyRotationService) PruneExpired(ctx context.Context) (int, error) {
	if !s.persistent() {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.Store.SigningKeys().ListSigningKeys(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()
	pruned := 0
	for _, k := range keys {
		if k.State != domain.KeyStatePrevious || !k.IsExpired(now) {
			continue
		}
		if err := s.Keys.Retire(k.Kid); err == nil {
			pruned++
		}
	}
	if pruned > 0 {
		metrics.SetKeyRing(1, len(s.Keys.PreviousSigningKeys()))
	}
	return pruned, nil
}
