package service

import (
	"context"
	"errors"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/audit"
	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/aixasz/AixaszSampleProject/internal/auth/lockout"
	"github.com/aixasz/AixaszSampleProject/internal/auth/metrics"
	"github.com/aixasz/AixaszSampleProject/internal/auth/store"
	"github.com/aixasz/AixaszSampleProject/pkg/slogx"
)

const TokenTypeBearer = "Bearer"

// DefaultRefreshTTL is used when TokenService.RefreshTTL is unset.
const DefaultRefreshTTL = 14 * 24 * time.Hour

type TokenService struct {
	Credentials CredentialStore
	Store       store.Store
	Issuer      *TokenIssuer
	Lockout     lockout.Counter
	Audit       audit.Publisher

	RefreshTTL   time.Duration
	StoreTimeout time.Duration

	// Now overrides the clock. Tests only.
	Now func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return DefaultRefreshTTL
}

func (s *TokenService) publish(ctx context.Context, e audit.Event) {
	if s.Audit != nil {
		s.Audit.Publish(ctx, e)
	}
}

// Exchange is the grant dispatcher. The grant type is checked before any
// credential is looked up, so unsupported grants never touch the store.
func (s *TokenService) Exchange(ctx context.Context, req domain.TokenRequest) (domain.TokenResponse, error) {
	var handle func(context.Context, domain.TokenRequest) (domain.TokenResponse, error)

	switch req.GrantType {
	case domain.GrantClientCredentials:
		handle = s.ExchangeClientCredentials
	case domain.GrantPassword:
		handle = s.ExchangePassword
	case domain.GrantRefreshToken:
		handle = s.ExchangeRefreshToken
	default:
		metrics.TokenRequests.WithLabelValues("unsupported", metrics.OutcomeRejected).Inc()
		return domain.TokenResponse{}, ErrUnsupportedGrantType
	}

	ctx = slogx.With(ctx, "grant_type", req.GrantType)
	start := time.Now()
	resp, err := handle(ctx, req)
	metrics.TokenIssueDuration.WithLabelValues(req.GrantType).Observe(time.Since(start).Seconds())
	metrics.TokenRequests.WithLabelValues(req.GrantType, outcome(err)).Inc()

	if err != nil {
		l := slogx.FromContext(ctx)
		switch {
		case errors.Is(err, ErrSigningFailure):
			l.Error("token signing failed", slogx.Err(err))
		case errors.Is(err, ErrUpstreamUnavailable):
			l.Error("token request failed upstream", slogx.Err(err))
		default:
			l.Info("token request rejected", slogx.Err(err), "client_id", req.ClientID)
		}
		return domain.TokenResponse{}, err
	}
	return resp, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeIssued
	case errors.Is(err, ErrUpstreamUnavailable):
		return metrics.OutcomeUnavailable
	case errors.Is(err, ErrSigningFailure):
		return metrics.OutcomeError
	}
	return metrics.OutcomeRejected
}

// ExchangeClientCredentials implements the client_credentials grant. The
// client is the subject; no identity or refresh token is issued.
func (s *TokenService) ExchangeClientCredentials(ctx context.Context, req domain.TokenRequest) (domain.TokenResponse, error) {
	client, err := authenticateClient(ctx, s.Credentials, req.ClientID, req.ClientSecret)
	if err != nil {
		return domain.TokenResponse{}, err
	}
	if !client.IsConfidential() {
		return domain.TokenResponse{}, ErrInvalidClient
	}
	if !client.AllowsGrant(domain.GrantClientCredentials) {
		return domain.TokenResponse{}, ErrUnauthorizedClient
	}

	scopes := domain.GrantScopes(req.Scopes, client.Scopes)

	access, err := s.Issuer.IssueAccess(clientClaims(client, scopes))
	if err != nil {
		return domain.TokenResponse{}, err
	}

	s.publish(ctx, audit.Event{
		Type:      audit.TokenIssued,
		GrantType: req.GrantType,
		ClientID:  client.ID,
		Subject:   client.ID,
		Scopes:    scopes,
	})

	return domain.TokenResponse{
		AccessToken: access.Token,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   s.Issuer.AccessTTL,
		Scopes:      scopes,
	}, nil
}

// clientClaims builds the claims set for a client acting on its own
// behalf. Every claim is access-only.
func clientClaims(c domain.Client, scopes []string) *domain.ClaimsSet {
	cs := domain.NewClaimsSet(c.ID, c.ID, domain.AMRClient, scopes)
	cs.AddTo(domain.ClaimName, domain.DestAccess, c.DisplayName)
	return cs
}

// userClaims builds the claims set for a resource owner from the current
// user record.
func userClaims(u domain.User, clientID string, scopes []string) *domain.ClaimsSet {
	cs := domain.NewClaimsSet(u.ID, clientID, domain.AMRPassword, scopes)
	cs.Add(domain.ClaimName, u.Username)
	cs.Add(domain.ClaimEmail, u.Email)
	cs.Add(domain.ClaimRole, u.Roles...)
	return cs
}

// issueUserTokens signs the access token and, when openid was granted, the
// identity token. Nothing is persisted here.
func (s *TokenService) issueUserTokens(cs *domain.ClaimsSet) (domain.TokenResponse, error) {
	access, err := s.Issuer.IssueAccess(cs)
	if err != nil {
		return domain.TokenResponse{}, err
	}
	resp := domain.TokenResponse{
		AccessToken: access.Token,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   s.Issuer.AccessTTL,
		Scopes:      cs.Scopes,
	}

	if cs.HasScope(domain.ScopeOpenID) {
		id, err := s.Issuer.IssueIdentity(cs)
		if err != nil {
			return domain.TokenResponse{}, err
		}
		resp.IDToken = id.Token
	}
	return resp, nil
}
