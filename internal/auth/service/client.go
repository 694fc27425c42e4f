package service

import (
	"context"
	"fmt"
	"regexp"
	"slices"

	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/aixasz/AixaszSampleProject/internal/auth/store"
	"github.com/aixasz/AixaszSampleProject/pkg/cryptox"
	"github.com/aixasz/AixaszSampleProject/pkg/idx"
	"github.com/aixasz/AixaszSampleProject/pkg/slogx"
)

var (
	clientIDRe = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)
	scopeRe    = regexp.MustCompile(`^[\x21\x23-\x5B\x5D-\x7E]+$`)
)

var supportedGrants = []string{domain.GrantClientCredentials, domain.GrantPassword, domain.GrantRefreshToken}

// NewClient describes a client to register. An empty ID is generated.
type NewClient struct {
	ID           string
	DisplayName  string
	Confidential bool
	GrantTypes   []string
	Scopes       []string

	// Secret is used instead of a generated one when set. Seeding only.
	Secret string
}

type ClientService struct {
	Store store.Store
}

// CreateClient registers a client. For confidential clients the plaintext
// secret is returned; it is never stored and cannot be recovered.
func (s *ClientService) CreateClient(ctx context.Context, req NewClient) (domain.Client, string, error) {
	l := slogx.FromContext(ctx)

	c, err := validateNewClient(req)
	if err != nil {
		return domain.Client{}, "", err
	}

	var plaintext string
	if req.Confidential {
		plaintext = req.Secret
		if plaintext == "" {
			plaintext, err = cryptox.GenerateToken(cryptox.TokenSize256)
			if err != nil {
				return domain.Client{}, "", err
			}
		}
		c.SecretHash, err = cryptox.HashPassword(plaintext)
		if err != nil {
			l.Error("failed to hash client secret", slogx.Err(err))
			return domain.Client{}, "", err
		}
	}

	if err := s.Store.Clients().CreateClient(ctx, c); err != nil {
		return domain.Client{}, "", adminError(err)
	}

	l.Info("client created", "client_id", c.ID, "confidential", req.Confidential, "grant_types", c.GrantTypes)
	return c, plaintext, nil
}

func validateNewClient(req NewClient) (domain.Client, error) {
	id := req.ID
	if id == "" {
		id = idx.New().String()
	}
	if !clientIDRe.MatchString(id) {
		return domain.Client{}, fmt.Errorf("%w: client_id must be 1-64 characters of letters, digits, '.', '_' or '-'", ErrInvalidInput)
	}

	grants := dedupe(req.GrantTypes)
	if len(grants) == 0 {
		return domain.Client{}, fmt.Errorf("%w: at least one grant type is required", ErrInvalidInput)
	}
	for _, g := range grants {
		if !slices.Contains(supportedGrants, g) {
			return domain.Client{}, fmt.Errorf("%w: unsupported grant type %q", ErrInvalidInput, g)
		}
	}
	if slices.Contains(grants, domain.GrantClientCredentials) && !req.Confidential {
		return domain.Client{}, fmt.Errorf("%w: client_credentials requires a confidential client", ErrInvalidInput)
	}

	scopes := dedupe(req.Scopes)
	for _, sc := range scopes {
		if !scopeRe.MatchString(sc) {
			return domain.Client{}, fmt.Errorf("%w: invalid scope %q", ErrInvalidInput, sc)
		}
	}

	return domain.Client{
		ID:          id,
		DisplayName: req.DisplayName,
		GrantTypes:  grants,
		Scopes:      scopes,
	}, nil
}

func (s *ClientService) GetClient(ctx context.Context, clientID string) (domain.Client, error) {
	c, err := s.Store.Clients().GetClientByID(ctx, clientID)
	return c, adminError(err)
}

func (s *ClientService) ListClients(ctx context.Context) ([]domain.Client, error) {
	clients, err := s.Store.Clients().ListClients(ctx)
	return clients, adminError(err)
}

// RotateSecret replaces the secret of a confidential client and returns
// the new plaintext. Public clients cannot be given a secret this way.
func (s *ClientService) RotateSecret(ctx context.Context, clientID string) (string, error) {
	c, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		return "", adminError(err)
	}
	if !c.IsConfidential() {
		return "", fmt.Errorf("%w: client %q is public", ErrInvalidInput, clientID)
	}

	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}
	hash, err := cryptox.HashPassword(secret)
	if err != nil {
		return "", err
	}
	if err := s.Store.Clients().UpdateClientSecretHash(ctx, clientID, hash); err != nil {
		return "", adminError(err)
	}

	slogx.FromContext(ctx).Info("client secret rotated", "client_id", clientID)
	return secret, nil
}

// DeleteClient removes a client and, by cascade, its refresh tokens.
func (s *ClientService) DeleteClient(ctx context.Context, clientID string) error {
	if err := s.Store.Clients().DeleteClient(ctx, clientID); err != nil {
		return adminError(err)
	}
	slogx.FromContext(ctx).Info("client deleted", "client_id", clientID)
	return nil
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
