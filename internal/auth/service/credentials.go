package service

import (
	"context"
	"errors"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/aixasz/AixaszSampleProject/internal/auth/store"
	"github.com/aixasz/AixaszSampleProject/pkg/cryptox"
)

// DefaultStoreTimeout bounds every store call made while serving a token
// request.
const DefaultStoreTimeout = 2 * time.Second

// CredentialStore is what the grant handlers read clients and users from.
// Lookups return store.ErrNotFound for unknown ids and
// ErrUpstreamUnavailable when the backing store fails or times out.
type CredentialStore interface {
	FindClientByID(ctx context.Context, id string) (domain.Client, error)
	FindUserByID(ctx context.Context, id string) (domain.User, error)
	FindUserByUsername(ctx context.Context, username string) (domain.User, error)
	VerifyPassword(user domain.User, plaintext string) bool
}

// StoreCredentials adapts a store.Store. Each call runs under its own
// timeout and is attempted once.
type StoreCredentials struct {
	Store   store.Store
	Timeout time.Duration
}

func (c *StoreCredentials) FindClientByID(ctx context.Context, id string) (domain.Client, error) {
	ctx, cancel := withStoreTimeout(ctx, c.Timeout)
	defer cancel()

	client, err := c.Store.Clients().GetClientByID(ctx, id)
	return client, upstream(err)
}

func (c *StoreCredentials) FindUserByID(ctx context.Context, id string) (domain.User, error) {
	ctx, cancel := withStoreTimeout(ctx, c.Timeout)
	defer cancel()

	user, err := c.Store.Users().GetUserByID(ctx, id)
	return user, upstream(err)
}

func (c *StoreCredentials) FindUserByUsername(ctx context.Context, username string) (domain.User, error) {
	ctx, cancel := withStoreTimeout(ctx, c.Timeout)
	defer cancel()

	user, err := c.Store.Users().GetUserByUsername(ctx, domain.NormalizeUsername(username))
	return user, upstream(err)
}

func (c *StoreCredentials) VerifyPassword(user domain.User, plaintext string) bool {
	return cryptox.VerifyPassword(plaintext, user.PasswordHash) == nil
}

func withStoreTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, d)
}

// authenticateClient checks a client id and secret. Unknown clients and
// wrong secrets both yield ErrInvalidClient after comparable work, so the
// response does not reveal which one it was. Public clients authenticate
// by id alone and must not present a secret.
func authenticateClient(ctx context.Context, creds CredentialStore, id, secret string) (domain.Client, error) {
	if id == "" {
		return domain.Client{}, ErrInvalidClient
	}

	client, err := creds.FindClientByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		cryptox.BurnVerify(secret)
		return domain.Client{}, ErrInvalidClient
	}
	if err != nil {
		return domain.Client{}, err
	}

	if !client.IsConfidential() {
		if secret != "" {
			return domain.Client{}, ErrInvalidClient
		}
		return client, nil
	}
	if secret == "" || cryptox.VerifyPassword(secret, client.SecretHash) != nil {
		return domain.Client{}, ErrInvalidClient
	}
	return client, nil
}
