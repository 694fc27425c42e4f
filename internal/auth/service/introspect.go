package service

import (
	"context"
	"errors"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/audit"
	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/aixasz/AixaszSampleProject/internal/auth/store"
	"github.com/aixasz/AixaszSampleProject/pkg/cryptox"
	"github.com/aixasz/AixaszSampleProject/pkg/jwtx"
)

// Token type hints (RFC 7009 section 2.1).
const (
	HintAccessToken  = "access_token"
	HintRefreshToken = "refresh_token"
)

// Introspection is the state of a token as seen by the server. Only Active
// is meaningful when Active is false.
type Introspection struct {
	Active    bool
	TokenType string
	Subject   string
	Username  string
	ClientID  string
	Scopes    []string
	Audience  []string
	Issuer    string
	ID        string
	AMR       []string
	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time
}

// IntrospectionService answers RFC 7662 introspection and RFC 7009
// revocation requests.
type IntrospectionService struct {
	Credentials  CredentialStore
	Store        store.Store
	Verifier     jwtx.Verifier
	Audit        audit.Publisher
	StoreTimeout time.Duration

	// Now overrides the clock. Tests only.
	Now func() time.Time
}

func (s *IntrospectionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Introspect reports whether token is active. Only confidential clients
// may introspect. Refresh tokens are only reported active to the client
// they were issued to.
func (s *IntrospectionService) Introspect(ctx context.Context, clientID, secret, token, hint string) (Introspection, error) {
	client, err := authenticateClient(ctx, s.Credentials, clientID, secret)
	if err != nil {
		return Introspection{}, err
	}
	if !client.IsConfidential() {
		return Introspection{}, ErrInvalidClient
	}
	if token == "" {
		return Introspection{}, ErrInvalidRequest
	}

	lookups := []func(context.Context, string, string) (Introspection, error){s.introspectAccess, s.introspectRefresh}
	if hint == HintRefreshToken {
		lookups[0], lookups[1] = lookups[1], lookups[0]
	}
	for _, lookup := range lookups {
		info, err := lookup(ctx, client.ID, token)
		if err != nil {
			return Introspection{}, err
		}
		if info.Active {
			return info, nil
		}
	}
	return Introspection{Active: false}, nil
}

func (s *IntrospectionService) introspectAccess(_ context.Context, _ string, token string) (Introspection, error) {
	claims, err := s.Verifier.Verify(token)
	if err != nil {
		return Introspection{Active: false}, nil
	}
	info := Introspection{
		Active:    true,
		TokenType: TokenTypeBearer,
		Subject:   claims.Subject,
		Username:  claims.String(domain.ClaimName),
		ClientID:  claims.ClientID,
		Scopes:    claims.Scopes(),
		Audience:  claims.Audience,
		Issuer:    claims.Issuer,
		ID:        claims.ID,
		AMR:       claims.AMR,
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.NotBefore != nil {
		info.NotBefore = claims.NotBefore.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

func (s *IntrospectionService) introspectRefresh(ctx context.Context, callerID, token string) (Introspection, error) {
	ctx, cancel := withStoreTimeout(ctx, s.StoreTimeout)
	defer cancel()

	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(token))
	if errors.Is(err, store.ErrNotFound) {
		return Introspection{Active: false}, nil
	}
	if err != nil {
		return Introspection{}, upstream(err)
	}
	if !rt.Usable(s.now()) || rt.ClientID != callerID {
		return Introspection{Active: false}, nil
	}
	return Introspection{
		Active:    true,
		TokenType: HintRefreshToken,
		Subject:   rt.UserID,
		ClientID:  rt.ClientID,
		Scopes:    rt.Scopes,
		IssuedAt:  rt.CreatedAt,
		ExpiresAt: rt.ExpiresAt,
	}, nil
}

// Revoke revokes a refresh token issued to the calling client. Unknown
// tokens, tokens of other clients and access tokens are ignored: JWT
// access tokens stay valid until they expire.
func (s *IntrospectionService) Revoke(ctx context.Context, clientID, secret, token, hint string) error {
	client, err := authenticateClient(ctx, s.Credentials, clientID, secret)
	if err != nil {
		return err
	}
	if token == "" {
		return ErrInvalidRequest
	}
	if hint == HintAccessToken {
		return nil
	}

	sctx, cancel := withStoreTimeout(ctx, s.StoreTimeout)
	defer cancel()
	revoked, err := s.Store.RefreshTokens().RevokeRefreshToken(sctx, cryptox.FingerprintToken(token), client.ID)
	if err != nil {
		return upstream(err)
	}
	if revoked && s.Audit != nil {
		s.Audit.Publish(ctx, audit.Event{Type: audit.TokenRevoked, ClientID: client.ID})
	}
	return nil
}
