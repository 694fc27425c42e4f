package service

import (
	"context"
	"errors"

	"github.com/aixasz/AixaszSampleProject/internal/auth/audit"
	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/aixasz/AixaszSampleProject/internal/auth/metrics"
	"github.com/aixasz/AixaszSampleProject/internal/auth/store"
	"github.com/aixasz/AixaszSampleProject/pkg/cryptox"
)

// ExchangeRefreshToken implements the refresh_token grant with single-use
// tokens. The presented token is consumed and its successor stored in one
// transaction; of two concurrent redemptions exactly one succeeds.
//
// Claims are rebuilt from the current user record, so role and email
// changes apply at the next refresh. A scope parameter may only narrow the
// original grant; the successor keeps the original scopes.
func (s *TokenService) ExchangeRefreshToken(ctx context.Context, req domain.TokenRequest) (domain.TokenResponse, error) {
	if req.RefreshToken == "" {
		return domain.TokenResponse{}, ErrInvalidRequest
	}

	now := s.now()
	fp := cryptox.FingerprintToken(req.RefreshToken)

	rt, err := s.lookupRefreshToken(ctx, fp)
	if err != nil {
		return domain.TokenResponse{}, err
	}
	if rt.Revoked {
		s.replayed(ctx, req, rt)
		return domain.TokenResponse{}, ErrInvalidRefreshToken
	}
	if !rt.Usable(now) {
		return domain.TokenResponse{}, ErrInvalidRefreshToken
	}

	if req.ClientID != rt.ClientID {
		return domain.TokenResponse{}, ErrInvalidRefreshToken
	}
	if rt.ClientID != "" {
		client, err := authenticateClient(ctx, s.Credentials, req.ClientID, req.ClientSecret)
		if err != nil {
			return domain.TokenResponse{}, err
		}
		if !client.AllowsGrant(domain.GrantRefreshToken) {
			return domain.TokenResponse{}, ErrUnauthorizedClient
		}
	} else if req.ClientSecret != "" {
		return domain.TokenResponse{}, ErrInvalidRequest
	}

	user, err := s.Credentials.FindUserByID(ctx, rt.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.TokenResponse{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return domain.TokenResponse{}, err
	}

	scopes := rt.Scopes
	if len(req.Scopes) > 0 {
		scopes = domain.IntersectScopes(req.Scopes, rt.Scopes)
	}

	resp, err := s.issueUserTokens(userClaims(user, rt.ClientID, scopes))
	if err != nil {
		return domain.TokenResponse{}, err
	}

	next, opaque, err := s.newRefreshToken(user.ID, rt.ClientID, rt.Scopes)
	if err != nil {
		return domain.TokenResponse{}, err
	}

	sctx, cancel := withStoreTimeout(ctx, s.StoreTimeout)
	defer cancel()
	err = s.Store.WithTx(sctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().ConsumeRefreshToken(sctx, fp, now); err != nil {
			return err
		}
		return tx.RefreshTokens().CreateRefreshToken(sctx, next)
	})
	if errors.Is(err, store.ErrConflict) {
		s.replayed(ctx, req, rt)
		return domain.TokenResponse{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return domain.TokenResponse{}, upstream(err)
	}
	resp.RefreshToken = opaque

	s.publish(ctx, audit.Event{
		Type:      audit.TokenRefreshed,
		GrantType: req.GrantType,
		ClientID:  rt.ClientID,
		Subject:   user.ID,
		Username:  user.Username,
		Scopes:    scopes,
	})
	return resp, nil
}

func (s *TokenService) lookupRefreshToken(ctx context.Context, fp string) (domain.RefreshToken, error) {
	ctx, cancel := withStoreTimeout(ctx, s.StoreTimeout)
	defer cancel()

	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if errors.Is(err, store.ErrNotFound) {
		return domain.RefreshToken{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return domain.RefreshToken{}, upstream(err)
	}
	return rt, nil
}

func (s *TokenService) replayed(ctx context.Context, req domain.TokenRequest, rt domain.RefreshToken) {
	metrics.RefreshReplays.Inc()
	s.publish(ctx, audit.Event{
		Type:      audit.RefreshReplayed,
		GrantType: req.GrantType,
		ClientID:  rt.ClientID,
		Subject:   rt.UserID,
	})
}
