// Package lockout counts failed password attempts per account key and
// locks the key once too many failures land inside the policy window.
//
// A lock lasts one full window from the failure that triggered it. While
// locked, even a correct password is refused.
package lockout

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidPolicy = errors.New("lockout: max failures and window must be positive")

// Policy is the lockout threshold. Zero values fall back to DefaultPolicy.
type Policy struct {
	MaxFailures int
	Window      time.Duration
}

// DefaultPolicy locks after 5 failures within 15 minutes.
var DefaultPolicy = Policy{MaxFailures: 5, Window: 15 * time.Minute}

func (p Policy) withDefaults() Policy {
	if p.MaxFailures == 0 {
		p.MaxFailures = DefaultPolicy.MaxFailures
	}
	if p.Window == 0 {
		p.Window = DefaultPolicy.Window
	}
	return p
}

func (p Policy) validate() error {
	if p.MaxFailures < 1 || p.Window <= 0 {
		return ErrInvalidPolicy
	}
	return nil
}

// Counter is implemented by Memory and Redis.
//
// A password check runs as Attempt, then RecordFailure or RecordSuccess.
// Attempt reserves a slot in the window before the password is verified,
// so concurrent guesses never get more than MaxFailures verifications.
type Counter interface {
	// Locked reports whether key is currently locked out.
	Locked(ctx context.Context, key string) (bool, error)

	// Attempt reserves one attempt for key. It reports true, and reserves
	// nothing, when key is locked or the window already holds MaxFailures
	// attempts.
	Attempt(ctx context.Context, key string) (bool, error)

	// RecordFailure settles a reserved attempt as failed and reports
	// whether key is now locked.
	RecordFailure(ctx context.Context, key string) (bool, error)

	// RecordSuccess settles a reserved attempt as successful and clears
	// the count. It reports true when a lock landed while the attempt was
	// in flight, in which case the attempt must be refused.
	RecordSuccess(ctx context.Context, key string) (bool, error)

	// Unlock clears both the failure count and any active lock.
	Unlock(ctx context.Context, key string) error
}
