package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
)

const clientColumns = `id, display_name, secret_hash, grant_types, scopes, created_at, updated_at`

type clientsRepo struct {
	q *queries
}

func scanClient(row scanner) (domain.Client, error) {
	var (
		c                    domain.Client
		secretHash           sql.NullString
		grantTypes, scopes   string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&c.ID, &c.DisplayName, &secretHash, &grantTypes, &scopes, &createdAt, &updatedAt); err != nil {
		return domain.Client{}, err
	}
	c.SecretHash = mapNullString(secretHash)
	c.GrantTypes = splitAndFilter(grantTypes)
	c.Scopes = splitAndFilter(scopes)
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	c, err := scanClient(r.q.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = ?`, id))
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}
	return c, nil
}

func (r *clientsRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.q.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	_, err := r.q.exec(ctx, `
		INSERT INTO clients (id, display_name, secret_hash, grant_types, scopes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.DisplayName, mapStringNull(c.SecretHash),
		joinFields(c.GrantTypes), joinFields(c.Scopes),
		toMillis(c.CreatedAt), toMillis(now),
	)
	return err
}

func (r *clientsRepo) UpdateClientSecretHash(ctx context.Context, clientID, secretHash string) error {
	return r.q.execOne(ctx,
		`UPDATE clients SET secret_hash = ?, updated_at = ? WHERE id = ?`,
		mapStringNull(secretHash), toMillis(time.Now()), clientID,
	)
}

func (r *clientsRepo) DeleteClient(ctx context.Context, clientID string) error {
	return r.q.execOne(ctx, `DELETE FROM clients WHERE id = ?`, clientID)
}

func (r *clientsRepo) IsEmpty(ctx context.Context) (bool, error) {
	count, err := r.q.count(ctx, `SELECT COUNT(*) FROM clients`)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
