package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/aixasz/AixaszSampleProject/internal/auth/lockout"
	"github.com/aixasz/AixaszSampleProject/internal/auth/store"
	"github.com/aixasz/AixaszSampleProject/pkg/cryptox"
	"github.com/aixasz/AixaszSampleProject/pkg/idx"
	"github.com/aixasz/AixaszSampleProject/pkg/jwtx"
	"github.com/aixasz/AixaszSampleProject/pkg/slogx"
)

// NewUser describes a resource owner to register.
type NewUser struct {
	Username string
	Email    string
	Password string
	Roles    []string
}

type UserService struct {
	Store   store.Store
	Lockout lockout.Counter
}

func (s *UserService) GetUser(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	return u, adminError(err)
}

func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.Store.Users().ListUsers(ctx)
	return users, adminError(err)
}

func (s *UserService) CreateUser(ctx context.Context, req NewUser) (domain.User, error) {
	username := domain.NormalizeUsername(req.Username)
	if err := domain.ValidateUsername(username); err != nil {
		return domain.User{}, invalidInput(err)
	}
	email := strings.TrimSpace(req.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return domain.User{}, invalidInput(err)
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return domain.User{}, invalidInput(err)
	}
	roles, err := domain.NormalizeRoles(req.Roles)
	if err != nil {
		return domain.User{}, invalidInput(err)
	}

	hash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now()
	u := domain.User{
		ID:           idx.NewAt(now).String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		return domain.User{}, adminError(err)
	}

	slogx.FromContext(ctx).Info("user created", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// UpdateUser applies a partial update. Fields absent from the patch keep
// their stored values. Changes reach tokens at the next refresh.
func (s *UserService) UpdateUser(ctx context.Context, userID string, p domain.Patch[domain.UserFields]) (domain.User, error) {
	if p.Empty() {
		return domain.User{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	var updated domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := u.Apply(p); err != nil {
			return invalidInput(err)
		}
		if err := tx.Users().UpdateUser(ctx, u); err != nil {
			return err
		}
		updated = u
		return nil
	})
	if errors.Is(err, ErrInvalidInput) {
		return domain.User{}, err
	}
	if err != nil {
		return domain.User{}, adminError(err)
	}

	slogx.FromContext(ctx).Info("user updated", "user_id", userID)
	return updated, nil
}

// SetPassword replaces a user's password, revokes every refresh token the
// user holds and lifts any lockout on the account.
func (s *UserService) SetPassword(ctx context.Context, userID, password string) error {
	if err := domain.ValidatePassword(password); err != nil {
		return invalidInput(err)
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return err
	}

	var username string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		username = u.Username
		if err := tx.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID)
	})
	if err != nil {
		return adminError(err)
	}

	if s.Lockout != nil {
		if err := s.Lockout.Unlock(ctx, username); err != nil {
			slogx.FromContext(ctx).Warn("failed to clear lockout after password change", slogx.Err(err), "user_id", userID)
		}
	}

	slogx.FromContext(ctx).Info("user password changed", "user_id", userID)
	return nil
}

func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	if err := s.Store.Users().DeleteUser(ctx, userID); err != nil {
		return adminError(err)
	}
	slogx.FromContext(ctx).Info("user deleted", "user_id", userID)
	return nil
}

// UserInfo is the OpenID Connect userinfo view of the token's subject.
type UserInfo struct {
	Subject string
	Name    string
	Email   string
	Roles   []string
}

// UserInfo reads the subject's current record and releases the attributes
// the token's scopes cover: profile for name, email for email and roles
// for role.
func (s *UserService) UserInfo(ctx context.Context, claims jwtx.Claims) (UserInfo, error) {
	u, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		return UserInfo{}, adminError(err)
	}

	info := UserInfo{Subject: u.ID}
	if claims.HasScope(domain.ScopeProfile) {
		info.Name = u.Username
	}
	if claims.HasScope(domain.ScopeEmail) {
		info.Email = u.Email
	}
	if claims.HasScope(domain.ScopeRoles) {
		info.Roles = u.Roles
	}
	return info, nil
}

func invalidInput(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}
