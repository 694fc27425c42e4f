package domain

import "time"

// Signing key lifecycle states.
const (
	KeyStateCurrent  = "current"
	KeyStatePrevious = "previous"
	KeyStateRetired  = "retired"
)

// SigningKey is a persisted key. The private key PEM is sealed with the
// master key before it reaches the store.
type SigningKey struct {
	Kid                 string
	Algorithm           string
	PrivateKeyEncrypted []byte
	State               string
	CreatedAt           time.Time
	RetiredAt           *time.Time
	ExpiresAt           *time.Time // verification ends, set when demoted
}

// IsExpired reports whether a demoted key has passed its grace period.
func (k *SigningKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}
