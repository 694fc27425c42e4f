package service

import (
	"context"
	"errors"
	"slices"

	"github.com/aixasz/AixaszSampleProject/internal/auth/audit"
	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/aixasz/AixaszSampleProject/internal/auth/metrics"
	"github.com/aixasz/AixaszSampleProject/internal/auth/store"
	"github.com/aixasz/AixaszSampleProject/pkg/cryptox"
	"github.com/aixasz/AixaszSampleProject/pkg/idx"
)

// ExchangePassword implements the resource owner password grant.
//
// The client is optional. When a client_id is sent the client must
// authenticate and allow the password grant. Lockout is counted on the
// normalized username whether or not the account exists.
func (s *TokenService) ExchangePassword(ctx context.Context, req domain.TokenRequest) (domain.TokenResponse, error) {
	username := domain.NormalizeUsername(req.Username)
	if username == "" || req.Password == "" {
		return domain.TokenResponse{}, ErrInvalidRequest
	}

	var client domain.Client
	if req.ClientID != "" {
		c, err := authenticateClient(ctx, s.Credentials, req.ClientID, req.ClientSecret)
		if err != nil {
			return domain.TokenResponse{}, err
		}
		if !c.AllowsGrant(domain.GrantPassword) {
			return domain.TokenResponse{}, ErrUnauthorizedClient
		}
		client = c
	} else if req.ClientSecret != "" {
		return domain.TokenResponse{}, ErrInvalidRequest
	}

	user, err := s.authenticateUser(ctx, req, username)
	if err != nil {
		return domain.TokenResponse{}, err
	}

	scopes := domain.IntersectScopes(req.Scopes, passwordScopes(client))

	cs := userClaims(user, client.ID, scopes)
	resp, err := s.issueUserTokens(cs)
	if err != nil {
		return domain.TokenResponse{}, err
	}

	if cs.HasScope(domain.ScopeOfflineAccess) {
		rt, opaque, err := s.newRefreshToken(user.ID, client.ID, scopes)
		if err != nil {
			return domain.TokenResponse{}, err
		}
		sctx, cancel := withStoreTimeout(ctx, s.StoreTimeout)
		defer cancel()
		if err := s.Store.RefreshTokens().CreateRefreshToken(sctx, rt); err != nil {
			return domain.TokenResponse{}, upstream(err)
		}
		resp.RefreshToken = opaque
	}

	s.publish(ctx, audit.Event{
		Type:      audit.TokenIssued,
		GrantType: req.GrantType,
		ClientID:  client.ID,
		Subject:   user.ID,
		Username:  user.Username,
		Scopes:    scopes,
	})
	return resp, nil
}

// passwordScopes is the set a password grant may hand out. A bound client
// narrows the user catalogue to its own scopes, and offline_access is
// dropped when the client cannot redeem refresh tokens.
func passwordScopes(client domain.Client) []string {
	if client.ID == "" {
		return domain.UserScopeCatalog
	}
	allowed := domain.IntersectScopes(domain.UserScopeCatalog, client.Scopes)
	if !client.AllowsGrant(domain.GrantRefreshToken) {
		allowed = slices.DeleteFunc(allowed, func(s string) bool { return s == domain.ScopeOfflineAccess })
	}
	return allowed
}

// authenticateUser reserves a lockout attempt, verifies the password and
// settles the attempt. The reservation is taken before the slow password
// check, so a burst of concurrent guesses gets at most MaxFailures
// verifications, and a correct guess settling after the lock is refused.
// Unknown users and wrong passwords produce the same error after
// comparable work.
func (s *TokenService) authenticateUser(ctx context.Context, req domain.TokenRequest, username string) (domain.User, error) {
	user, err := s.Credentials.FindUserByUsername(ctx, username)
	known := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	refused, err := s.Lockout.Attempt(ctx, username)
	if err != nil {
		return domain.User{}, upstream(err)
	}
	if refused {
		cryptox.BurnVerify(req.Password)
		return domain.User{}, s.lockedOut(ctx, req, username)
	}

	if !known {
		cryptox.BurnVerify(req.Password)
		return domain.User{}, s.recordFailure(ctx, req, username, "unknown_user")
	}
	if !s.Credentials.VerifyPassword(user, req.Password) {
		return domain.User{}, s.recordFailure(ctx, req, username, "bad_password")
	}

	locked, err := s.Lockout.RecordSuccess(ctx, username)
	if err != nil {
		return domain.User{}, upstream(err)
	}
	if locked {
		return domain.User{}, s.lockedOut(ctx, req, username)
	}
	return user, nil
}

func (s *TokenService) lockedOut(ctx context.Context, req domain.TokenRequest, username string) error {
	s.publish(ctx, audit.Event{Type: audit.LoginFailed, GrantType: req.GrantType, ClientID: req.ClientID, Username: username, Reason: "locked_out"})
	return ErrAccountLockedOut
}

func (s *TokenService) recordFailure(ctx context.Context, req domain.TokenRequest, username, reason string) error {
	locked, err := s.Lockout.RecordFailure(ctx, username)
	if err != nil {
		return upstream(err)
	}

	s.publish(ctx, audit.Event{Type: audit.LoginFailed, GrantType: req.GrantType, ClientID: req.ClientID, Username: username, Reason: reason})
	if locked {
		metrics.Lockouts.Inc()
		s.publish(ctx, audit.Event{Type: audit.AccountLocked, ClientID: req.ClientID, Username: username})
		return ErrAccountLockedOut
	}
	return ErrInvalidCredentials
}

// newRefreshToken mints an opaque refresh token. Only its fingerprint is
// stored.
func (s *TokenService) newRefreshToken(userID, clientID string, scopes []string) (domain.RefreshToken, string, error) {
	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.RefreshToken{}, "", err
	}
	now := s.now()
	return domain.RefreshToken{
		ID:        idx.NewAt(now).String(),
		TokenHash: cryptox.FingerprintToken(opaque),
		UserID:    userID,
		ClientID:  clientID,
		Scopes:    slices.Clone(scopes),
		ExpiresAt: now.Add(s.refreshTTL()),
		CreatedAt: now,
	}, opaque, nil
}
