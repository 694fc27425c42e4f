package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
)

const signingKeyColumns = `kid, algorithm, private_key_encrypted, state, created_at, retired_at, expires_at`

type signingKeysRepo struct {
	q *queries
}

func scanSigningKey(row scanner) (domain.SigningKey, error) {
	var (
		k                    domain.SigningKey
		createdAt            int64
		retiredAt, expiresAt sql.NullInt64
	)
	if err := row.Scan(&k.Kid, &k.Algorithm, &k.PrivateKeyEncrypted, &k.State, &createdAt, &retiredAt, &expiresAt); err != nil {
		return domain.SigningKey{}, err
	}
	k.CreatedAt = fromMillis(createdAt)
	k.RetiredAt = mapNullMillisPtr(retiredAt)
	k.ExpiresAt = mapNullMillisPtr(expiresAt)
	return k, nil
}

func (r *signingKeysRepo) CreateSigningKey(ctx context.Context, key domain.SigningKey) error {
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now()
	}
	if key.State == "" {
		key.State = domain.KeyStateCurrent
	}
	_, err := r.q.exec(ctx, `
		INSERT INTO signing_keys (kid, algorithm, private_key_encrypted, state, created_at, retired_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		key.Kid, key.Algorithm, key.PrivateKeyEncrypted, key.State,
		toMillis(key.CreatedAt), mapOptionalMillis(key.RetiredAt), mapOptionalMillis(key.ExpiresAt),
	)
	return err
}

func (r *signingKeysRepo) GetSigningKeyByKid(ctx context.Context, kid string) (domain.SigningKey, error) {
	k, err := scanSigningKey(r.q.db.QueryRowContext(ctx,
		`SELECT `+signingKeyColumns+` FROM signing_keys WHERE kid = ?`, kid))
	if err != nil {
		return domain.SigningKey{}, mapNotFound(err)
	}
	return k, nil
}

func (r *signingKeysRepo) ListSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	return r.list(ctx, `SELECT `+signingKeyColumns+` FROM signing_keys
		WHERE state IN ('current', 'previous') ORDER BY created_at DESC, kid DESC`)
}

func (r *signingKeysRepo) ListAllSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	return r.list(ctx, `SELECT `+signingKeyColumns+` FROM signing_keys ORDER BY created_at DESC, kid DESC`)
}

func (r *signingKeysRepo) list(ctx context.Context, query string) ([]domain.SigningKey, error) {
	rows, err := r.q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []domain.SigningKey
	for rows.Next() {
		k, err := scanSigningKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *signingKeysRepo) DemoteSigningKey(ctx context.Context, kid string, expiresAt time.Time) error {
	return r.q.execOne(ctx,
		`UPDATE signing_keys SET state = 'previous', expires_at = ? WHERE kid = ? AND state = 'current'`,
		toMillis(expiresAt), kid,
	)
}

func (r *signingKeysRepo) RetireSigningKey(ctx context.Context, kid string, at time.Time) error {
	return r.q.execOne(ctx,
		`UPDATE signing_keys SET state = 'retired', retired_at = ? WHERE kid = ? AND state = 'previous'`,
		toMillis(at), kid,
	)
}

func (r *signingKeysRepo) DeleteExpiredSigningKeys(ctx context.Context, now time.Time) (int64, error) {
	return r.q.exec(ctx, `
		DELETE FROM signing_keys
		WHERE state = 'retired' OR (state = 'previous' AND expires_at IS NOT NULL AND expires_at <= ?)`,
		toMillis(now),
	)
}
