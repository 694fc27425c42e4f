package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/aixasz/AixaszSampleProject/internal/auth/store"
)

type refreshTokensRepo struct {
	q *queries
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	_, err := r.q.exec(ctx, `
		INSERT INTO refresh_tokens (id, token_hash, user_id, client_id, scopes, expires_at, revoked, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TokenHash, t.UserID, mapStringNull(t.ClientID), joinFields(t.Scopes),
		toMillis(t.ExpiresAt), t.Revoked, toMillis(t.CreatedAt), toMillis(now),
	)
	return err
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(
	ctx context.Context,
	hash string,
) (domain.RefreshToken, error) {
	var (
		t                               domain.RefreshToken
		clientID                        sql.NullString
		scopes                          string
		expiresAt, createdAt, updatedAt int64
	)
	err := r.q.db.QueryRowContext(ctx, `
		SELECT id, token_hash, user_id, client_id, scopes, expires_at, revoked, created_at, updated_at
		FROM refresh_tokens WHERE token_hash = ?`, hash,
	).Scan(&t.ID, &t.TokenHash, &t.UserID, &clientID, &scopes, &expiresAt, &t.Revoked, &createdAt, &updatedAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}

	t.ClientID = mapNullString(clientID)
	t.Scopes = splitAndFilter(scopes)
	t.ExpiresAt = fromMillis(expiresAt)
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return t, nil
}

func (r *refreshTokensRepo) ConsumeRefreshToken(ctx context.Context, hash string, now time.Time) error {
	n, err := r.q.exec(ctx, `
		UPDATE refresh_tokens SET revoked = 1, updated_at = ?
		WHERE token_hash = ? AND revoked = 0 AND expires_at > ?`,
		toMillis(now), hash, toMillis(now),
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash, clientID string) (bool, error) {
	n, err := r.q.exec(ctx, `
		UPDATE refresh_tokens SET revoked = 1, updated_at = ?
		WHERE token_hash = ? AND revoked = 0 AND COALESCE(client_id, '') = ?`,
		toMillis(time.Now()), hash, clientID,
	)
	return n > 0, err
}

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.q.exec(ctx,
		`UPDATE refresh_tokens SET revoked = 1, updated_at = ? WHERE user_id = ? AND revoked = 0`,
		toMillis(time.Now()), userID,
	)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	ms := toMillis(now)
	return r.q.exec(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= ? OR (revoked = 1 AND updated_at <= ?)`,
		ms, ms,
	)
}
