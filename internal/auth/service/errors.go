package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aixasz/AixaszSampleProject/internal/auth/store"
)

var (
	ErrUnsupportedGrantType = errors.New("unsupported_grant_type")
	ErrInvalidRequest       = errors.New("invalid_request")
	ErrInvalidClient        = errors.New("invalid_client")
	ErrUnauthorizedClient   = errors.New("unauthorized_client")
	ErrInvalidGrant         = errors.New("invalid_grant")

	// Refinements of ErrInvalidGrant. The wire error code stays
	// invalid_grant; only the description differs.
	ErrInvalidCredentials  = fmt.Errorf("%w: invalid username or password", ErrInvalidGrant)
	ErrAccountLockedOut    = fmt.Errorf("%w: account locked out", ErrInvalidGrant)
	ErrInvalidRefreshToken = fmt.Errorf("%w: invalid refresh token", ErrInvalidGrant)

	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrSigningFailure      = errors.New("signing failure")

	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
)

// upstream classifies an infrastructure error. Store sentinels pass
// through; everything else, timeouts included, is ErrUpstreamUnavailable.
func upstream(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrAlreadyExists),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, ErrUpstreamUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: store timeout", ErrUpstreamUnavailable)
	}
	return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
}

// adminError maps store sentinels for the admin services.
func adminError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return ErrAlreadyExists
	}
	return upstream(err)
}
