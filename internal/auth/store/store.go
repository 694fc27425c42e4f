package store

import (
	"context"
	"errors"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict is returned when a conditional update matched no row,
	// e.g. a refresh token redeemed twice.
	ErrConflict = errors.New("store: conflict")
)

// Store is the root data access interface. Concrete drivers implement it
// and expose sub-repositories so transactions cannot be nested by accident.
type Store interface {
	Users() Users
	Clients() Clients
	RefreshTokens() RefreshTokens
	SigningKeys() SigningKeys

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction. It commits when fn returns nil and
	// rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername expects the normalized username.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// ListUsers returns users ordered by username.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// CreateUser returns ErrAlreadyExists when the id or username is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUser writes username, email and roles and bumps updated_at.
	UpdateUser(ctx context.Context, u domain.User) error

	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// DeleteUser cascades to refresh_tokens.
	DeleteUser(ctx context.Context, userID string) error

	IsEmpty(ctx context.Context) (bool, error)
}

type Clients interface {
	GetClientByID(ctx context.Context, id string) (domain.Client, error)

	// ListClients returns all clients ordered by creation date (newest first).
	ListClients(ctx context.Context) ([]domain.Client, error)

	// CreateClient returns ErrAlreadyExists when the id is taken. An empty
	// secret hash registers a public client.
	CreateClient(ctx context.Context, c domain.Client) error

	UpdateClientSecretHash(ctx context.Context, clientID, secretHash string) error

	// DeleteClient cascades to refresh_tokens.
	DeleteClient(ctx context.Context, clientID string) error

	IsEmpty(ctx context.Context) (bool, error)
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash looks a token up by its fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// ConsumeRefreshToken flips revoked from 0 to 1 for a token that is
	// still valid at now. Exactly one concurrent caller wins; the others
	// get ErrConflict.
	ConsumeRefreshToken(ctx context.Context, hash string, now time.Time) error

	// RevokeRefreshToken revokes the token only when it was issued to
	// clientID. It reports whether a row changed.
	RevokeRefreshToken(ctx context.Context, hash, clientID string) (bool, error)

	// RevokeAllUserRefreshTokens is used after a password change.
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens removes expired and revoked rows last
	// touched before now.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

type SigningKeys interface {
	// CreateSigningKey stores a key with its sealed private key material.
	CreateSigningKey(ctx context.Context, key domain.SigningKey) error

	GetSigningKeyByKid(ctx context.Context, kid string) (domain.SigningKey, error)

	// ListSigningKeys returns current and previous keys, newest first.
	ListSigningKeys(ctx context.Context) ([]domain.SigningKey, error)

	// ListAllSigningKeys includes retired keys, newest first.
	ListAllSigningKeys(ctx context.Context) ([]domain.SigningKey, error)

	// DemoteSigningKey moves a current key to previous; it stays
	// published for verification until expiresAt.
	DemoteSigningKey(ctx context.Context, kid string, expiresAt time.Time) error

	// RetireSigningKey stops publishing a key.
	RetireSigningKey(ctx context.Context, kid string, at time.Time) error

	// DeleteExpiredSigningKeys removes retired keys and previous keys
	// whose grace period ended before now.
	DeleteExpiredSigningKeys(ctx context.Context, now time.Time) (int64, error)
}
