package sqlite

import (
	"context"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
)

const userColumns = `id, username, email, password_hash, roles, created_at, updated_at`

type usersRepo struct {
	q *queries
}

func scanUser(row scanner) (domain.User, error) {
	var (
		u                    domain.User
		roles                string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &roles, &createdAt, &updatedAt); err != nil {
		return domain.User{}, err
	}
	u.Roles = splitAndFilter(roles)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(r.q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	u, err := scanUser(r.q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	_, err := r.q.exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, roles, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, joinFields(u.Roles),
		toMillis(u.CreatedAt), toMillis(now),
	)
	return err
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) error {
	return r.q.execOne(ctx, `
		UPDATE users SET username = ?, email = ?, roles = ?, updated_at = ?
		WHERE id = ?`,
		u.Username, u.Email, joinFields(u.Roles), toMillis(time.Now()), u.ID,
	)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	return r.q.execOne(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, toMillis(time.Now()), userID,
	)
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	return r.q.execOne(ctx, `DELETE FROM users WHERE id = ?`, userID)
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	count, err := r.q.count(ctx, `SELECT COUNT(*) FROM users`)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
